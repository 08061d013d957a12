package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	clientdomain "github.com/scailup/creditcore/internal/client/domain"
	clientrepository "github.com/scailup/creditcore/internal/client/repository"
	"github.com/scailup/creditcore/internal/clock"
	"github.com/scailup/creditcore/internal/config"
	conversiondomain "github.com/scailup/creditcore/internal/conversion/domain"
	conversionrepository "github.com/scailup/creditcore/internal/conversion/repository"
	conversionservice "github.com/scailup/creditcore/internal/conversion/service"
	creditdomain "github.com/scailup/creditcore/internal/credit/domain"
	creditrepository "github.com/scailup/creditcore/internal/credit/repository"
	creditservice "github.com/scailup/creditcore/internal/credit/service"
	"github.com/scailup/creditcore/internal/sweep"
	"github.com/scailup/creditcore/internal/webhook"
	pkgrepository "github.com/scailup/creditcore/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type serverFixture struct {
	server *Server
	db     *gorm.DB
	node   *snowflake.Node
	clk    *clock.FakeClock
}

func setupServer(t *testing.T) *serverFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&clientdomain.Client{},
		&creditdomain.Plan{},
		&creditdomain.CreditBalance{},
		&creditdomain.UsageLog{},
		&conversiondomain.Lead{},
		&conversiondomain.Contact{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	log := zaptest.NewLogger(t)
	cfg := config.Config{AppName: "creditcore", Environment: "test"}

	clientRepo := clientrepository.Provide(db)
	creditRepo := creditrepository.Provide(db)
	creditSvc := creditservice.NewService(creditservice.ServiceParam{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  creditRepo,
		Clock: clk,
	})
	notifier := webhook.NewNotifier(webhook.Param{Cfg: cfg, Log: log, Clock: clk})
	conversionSvc := conversionservice.NewService(conversionservice.ServiceParam{
		DB:       db,
		Log:      log,
		GenID:    node,
		Repo:     conversionrepository.Provide(db),
		Leads:    pkgrepository.ProvideStore[conversiondomain.Lead](db),
		Clients:  clientRepo,
		Credits:  creditSvc,
		Clock:    clk,
		Notifier: notifier,
	})
	sweeper := sweep.New(sweep.Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      clk,
		Clients:    clientRepo,
		CreditRepo: creditRepo,
		CreditSvc:  creditSvc,
	})

	engine := NewEngine(cfg, log, prometheus.NewRegistry())
	srv := NewServer(ServerParams{
		Engine:        engine,
		Cfg:           cfg,
		Log:           log,
		Clock:         clk,
		ClientRepo:    clientRepo,
		CreditSvc:     creditSvc,
		ConversionSvc: conversionSvc,
		Sweeper:       sweeper,
	})

	return &serverFixture{server: srv, db: db, node: node, clk: clk}
}

func (f *serverFixture) seedClient(t *testing.T, leadCredits int64) snowflake.ID {
	t.Helper()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	client := clientdomain.Client{
		ID:            f.node.Generate(),
		CompanyName:   "API Co",
		BillingDate:   now,
		BillingStatus: clientdomain.BillingStatusPaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, f.db.Create(&client).Error)

	plan := creditdomain.Plan{
		ID:            f.node.Generate(),
		ClientID:      client.ID,
		Module:        creditdomain.ModuleLeadEngine,
		CreditType:    creditdomain.CreditTypeLeads,
		MonthlyLimit:  100,
		ResetInterval: "monthly",
		ActivatedAt:   &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, f.db.Create(&plan).Error)

	if leadCredits > 0 {
		balance := creditdomain.CreditBalance{
			ID:          f.node.Generate(),
			ClientID:    client.ID,
			Module:      creditdomain.ModuleLeadEngine,
			CreditType:  creditdomain.CreditTypeLeads,
			Amount:      leadCredits,
			ExpiresAt:   now.AddDate(0, 1, 0),
			Origin:      creditdomain.BalanceOriginGrant,
			OriginCycle: now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		require.NoError(t, f.db.Create(&balance).Error)
	}
	return client.ID
}

func (f *serverFixture) seedLead(t *testing.T, clientID snowflake.ID) snowflake.ID {
	t.Helper()
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	lead := conversiondomain.Lead{
		ID:        f.node.Generate(),
		ClientID:  clientID,
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     "grace@example.test",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.db.Create(&lead).Error)
	return lead.ID
}

func (f *serverFixture) do(t *testing.T, method, path string, clientID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if clientID != "" {
		req.Header.Set("X-Client-Id", clientID)
	}
	rec := httptest.NewRecorder()
	f.server.engine.ServeHTTP(rec, req)
	return rec
}

func TestConvertEndpoint(t *testing.T) {
	f := setupServer(t)
	clientID := f.seedClient(t, 5)
	leadID := f.seedLead(t, clientID)

	rec := f.do(t, http.MethodPost, "/api/v1/contacts/convert", clientID.String(), map[string]string{
		"lead_id": leadID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var result conversiondomain.ConvertResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, int64(4), result.CreditsRemaining)

	// Converting the same lead again is a success without a charge.
	rec = f.do(t, http.MethodPost, "/api/v1/contacts/convert", clientID.String(), map[string]string{
		"lead_id": leadID.String(),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.AlreadyConverted)
}

func TestConvertEndpointInsufficientCredits(t *testing.T) {
	f := setupServer(t)
	clientID := f.seedClient(t, 0)
	leadID := f.seedLead(t, clientID)

	rec := f.do(t, http.MethodPost, "/api/v1/contacts/convert", clientID.String(), map[string]string{
		"lead_id": leadID.String(),
	})
	require.Equal(t, http.StatusPaymentRequired, rec.Code, rec.Body.String())

	var resp struct {
		Error struct {
			Type    string         `json:"type"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "insufficient_credits", resp.Error.Type)
	assert.Equal(t, float64(0), resp.Error.Details["available"])
	assert.Equal(t, float64(1), resp.Error.Details["requested"])
}

func TestConvertBulkEndpoint(t *testing.T) {
	f := setupServer(t)
	clientID := f.seedClient(t, 5)
	leadA := f.seedLead(t, clientID)
	leadB := f.seedLead(t, clientID)
	bad := f.node.Generate()

	rec := f.do(t, http.MethodPost, "/api/v1/contacts/convert/bulk", clientID.String(), map[string]any{
		"lead_ids": []string{leadA.String(), bad.String(), leadB.String()},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result conversiondomain.BulkResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result.Converted, 2)
	assert.Len(t, result.Failed, 1)
}

func TestListLeadsEndpoint(t *testing.T) {
	f := setupServer(t)
	clientID := f.seedClient(t, 5)
	f.seedLead(t, clientID)
	f.seedLead(t, clientID)

	rec := f.do(t, http.MethodGet, "/api/v1/leads", clientID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Leads []conversiondomain.Lead `json:"leads"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Leads, 2)

	rec = f.do(t, http.MethodGet, "/api/v1/leads?limit=bogus", clientID.String(), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBalanceEndpoint(t *testing.T) {
	f := setupServer(t)
	clientID := f.seedClient(t, 42)

	rec := f.do(t, http.MethodGet, "/api/v1/credits/balance?module=lead_engine&credit_type=leads", clientID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary creditdomain.BalanceSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, int64(100), summary.MonthlyLimit)
	assert.Equal(t, int64(42), summary.RemainingCredits)
}

func TestRequestsWithoutClientHeaderAreRejected(t *testing.T) {
	f := setupServer(t)

	rec := f.do(t, http.MethodGet, "/api/v1/credits/balance?module=lead_engine&credit_type=leads", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminSweepEndpoint(t *testing.T) {
	f := setupServer(t)

	sweepDay := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	now := sweepDay.AddDate(0, -1, 0)
	client := clientdomain.Client{
		ID:            f.node.Generate(),
		CompanyName:   "Sweep API Co",
		BillingDate:   sweepDay.AddDate(0, 0, -1),
		BillingStatus: clientdomain.BillingStatusPaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, f.db.Create(&client).Error)
	plan := creditdomain.Plan{
		ID:            f.node.Generate(),
		ClientID:      client.ID,
		Module:        creditdomain.ModuleLeadEngine,
		CreditType:    creditdomain.CreditTypeLeads,
		MonthlyLimit:  50,
		ResetInterval: "monthly",
		ActivatedAt:   &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, f.db.Create(&plan).Error)

	rec := f.do(t, http.MethodPost, "/api/v1/admin/sweep", "", map[string]string{
		"date": sweepDay.Format("2006-01-02"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report sweep.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Processed)
}

func TestAdminSweepEndpointDefaultsToClockToday(t *testing.T) {
	f := setupServer(t)

	// The fixture clock reads 2026-03-15, so a client billed the day before
	// is due without an explicit date in the request.
	created := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	client := clientdomain.Client{
		ID:            f.node.Generate(),
		CompanyName:   "Due Co",
		BillingDate:   time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		BillingStatus: clientdomain.BillingStatusPaid,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	require.NoError(t, f.db.Create(&client).Error)
	plan := creditdomain.Plan{
		ID:            f.node.Generate(),
		ClientID:      client.ID,
		Module:        creditdomain.ModuleLeadEngine,
		CreditType:    creditdomain.CreditTypeLeads,
		MonthlyLimit:  50,
		ResetInterval: "monthly",
		ActivatedAt:   &created,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	require.NoError(t, f.db.Create(&plan).Error)

	rec := f.do(t, http.MethodPost, "/api/v1/admin/sweep", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report sweep.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1, report.Processed)
}

func TestGrantEndpoint(t *testing.T) {
	f := setupServer(t)
	clientID := f.seedClient(t, 0)

	rec := f.do(t, http.MethodPost, "/api/v1/admin/credits/grant", "", map[string]any{
		"client_id":   clientID.String(),
		"module":      "lead_engine",
		"credit_type": "leads",
		"amount":      25,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	balanceRec := f.do(t, http.MethodGet, "/api/v1/credits/balance?module=lead_engine&credit_type=leads", clientID.String(), nil)
	require.Equal(t, http.StatusOK, balanceRec.Code)

	var summary creditdomain.BalanceSummary
	require.NoError(t, json.Unmarshal(balanceRec.Body.Bytes(), &summary))
	assert.Equal(t, int64(25), summary.RemainingCredits)
}

func TestHealthEndpoint(t *testing.T) {
	f := setupServer(t)
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
