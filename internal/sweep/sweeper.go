package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/scailup/creditcore/internal/client/domain"
	"github.com/scailup/creditcore/internal/clock"
	creditdomain "github.com/scailup/creditcore/internal/credit/domain"
	obsmetrics "github.com/scailup/creditcore/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lockTTL = time.Hour

var errAlreadySwept = errors.New("already_swept")

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Clients    clientdomain.Repository
	CreditRepo creditdomain.Repository
	CreditSvc  creditdomain.Service
	Locker     *Locker             `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

// Sweeper renews credit allowances for clients whose billing cycle turned
// over the day before. Each client is an isolated transaction; one failing
// tenant never blocks the rest of the day's run.
type Sweeper struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	clients    clientdomain.Repository
	creditRepo creditdomain.Repository
	creditSvc  creditdomain.Service
	locker     *Locker
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) *Sweeper {
	return &Sweeper{
		db:         p.DB,
		log:        p.Log.Named("sweep").With(zap.String("component", "sweep")),
		genID:      p.GenID,
		clock:      p.Clock,
		clients:    p.Clients,
		creditRepo: p.CreditRepo,
		creditSvc:  p.CreditSvc,
		locker:     p.Locker,
		obsMetrics: p.ObsMetrics,
	}
}

// Report summarizes one sweep run.
type Report struct {
	Eligible  int      `json:"eligible"`
	Processed int      `json:"processed"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// Succeeded is true when nothing failed, or when at least one client was
// renewed despite other failures. An all-skipped rerun counts as success; a
// day where every eligible client failed does not.
func (r Report) Succeeded() bool {
	return r.Failed == 0 || r.Processed > 0
}

// RunDailySweep renews allowances for every client eligible on the given
// date. The date is truncated to UTC midnight; re-running for the same date
// is a no-op for clients already stamped.
func (s *Sweeper) RunDailySweep(ctx context.Context, date time.Time) (Report, error) {
	today := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	lockKey := "creditcore:sweep:" + today.Format("2006-01-02")
	token, ok, err := s.locker.TryLock(ctx, lockKey, lockTTL)
	if err != nil {
		return Report{}, err
	}
	if !ok {
		s.log.Info("sweep already running elsewhere, skipping", zap.String("date", today.Format("2006-01-02")))
		return Report{}, nil
	}
	defer func() {
		if err := s.locker.Release(context.Background(), lockKey, token); err != nil {
			s.log.Warn("release sweep lock", zap.Error(err))
		}
	}()

	start := s.clock.Now()
	eligible, err := s.clients.EligibleForReset(ctx, today)
	if err != nil {
		return Report{}, err
	}

	report := Report{Eligible: len(eligible)}
	for _, client := range eligible {
		err := s.processClient(ctx, client, today)
		switch {
		case err == nil:
			report.Processed++
			s.incClient("processed")
		case errors.Is(err, errAlreadySwept):
			report.Skipped++
			s.incClient("skipped")
		default:
			report.Failed++
			s.incClient("failed")
			report.Errors = append(report.Errors, fmt.Sprintf("client %s: %v", client.ID, err))
			s.log.Error("sweep client failed",
				zap.String("client_id", client.ID.String()),
				zap.Error(err),
			)
		}
	}

	if s.obsMetrics != nil {
		s.obsMetrics.SweepDuration.Observe(time.Since(start).Seconds())
	}
	s.log.Info("sweep finished",
		zap.String("date", today.Format("2006-01-02")),
		zap.Int("eligible", report.Eligible),
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// processClient runs one client's full renewal in a single transaction:
// rollover math, retirement of the ended cycle's grants, the new allowance,
// journal rows, and the idempotency stamp commit or roll back together.
func (s *Sweeper) processClient(ctx context.Context, client clientdomain.Client, today time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.clients.LockForReset(ctx, tx, client.ID)
		if err != nil {
			return err
		}
		if locked == nil {
			return clientdomain.ErrNotFound
		}
		if locked.LastCreditsResetAt != nil && sameDay(*locked.LastCreditsResetAt, today) {
			return errAlreadySwept
		}

		periodStart := today.AddDate(0, -1, 0)
		if locked.LastCreditsResetAt != nil {
			periodStart = *locked.LastCreditsResetAt
		}

		plans, err := s.creditRepo.ActivePlans(ctx, tx, client.ID)
		if err != nil {
			return err
		}
		for _, plan := range plans {
			if plan.Unlimited {
				continue
			}
			if err := s.renewPlan(ctx, tx, client.ID, plan, periodStart, today); err != nil {
				return fmt.Errorf("%s/%s: %w", plan.Module, plan.CreditType, err)
			}
		}

		return s.clients.StampReset(ctx, tx, client.ID, today)
	})
}

func (s *Sweeper) renewPlan(ctx context.Context, tx *gorm.DB, clientID snowflake.ID, plan creditdomain.Plan, periodStart, today time.Time) error {
	now := s.clock.Now()

	// Rollover first: it reads the pre-stamp period start and the ending
	// cycle's usage before anything about the new cycle exists.
	var rollover creditdomain.RolloverResult
	if plan.RolloverMonths > 0 {
		var err error
		rollover, err = s.creditSvc.ComputeRolloverInTx(ctx, tx, clientID, plan.Module, plan.CreditType, plan.RolloverMonths, today)
		if err != nil {
			return err
		}
	}

	if err := s.creditRepo.ZeroSupersededGrants(ctx, tx, clientID, plan.Module, plan.CreditType, periodStart, now); err != nil {
		return err
	}

	if plan.MonthlyLimit > 0 {
		if err := s.creditRepo.CreateBalance(ctx, tx, &creditdomain.CreditBalance{
			ID:          s.genID.Generate(),
			ClientID:    clientID,
			Module:      plan.Module,
			CreditType:  plan.CreditType,
			Amount:      plan.MonthlyLimit,
			ExpiresAt:   today.AddDate(0, 1, 0),
			Origin:      creditdomain.BalanceOriginGrant,
			OriginCycle: today,
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			return err
		}
		if err := s.appendLog(ctx, tx, clientID, plan, plan.MonthlyLimit, creditdomain.ReasonMonthlyReset, now); err != nil {
			return err
		}
		if s.obsMetrics != nil {
			s.obsMetrics.CreditsGranted.WithLabelValues(string(plan.Module), string(plan.CreditType), creditdomain.ReasonMonthlyReset).Add(float64(plan.MonthlyLimit))
		}
	}

	if rollover.RolloverAmount > 0 {
		if err := s.appendLog(ctx, tx, clientID, plan, rollover.RolloverAmount, creditdomain.ReasonRollover, now); err != nil {
			return err
		}
		if s.obsMetrics != nil {
			s.obsMetrics.CreditsGranted.WithLabelValues(string(plan.Module), string(plan.CreditType), creditdomain.ReasonRollover).Add(float64(rollover.RolloverAmount))
		}
	}
	if rollover.ExpiredAmount > 0 {
		if err := s.appendLog(ctx, tx, clientID, plan, -rollover.ExpiredAmount, creditdomain.ReasonRolloverExpired, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sweeper) appendLog(ctx context.Context, tx *gorm.DB, clientID snowflake.ID, plan creditdomain.Plan, amount int64, reason string, now time.Time) error {
	return s.creditRepo.AppendLog(ctx, tx, &creditdomain.UsageLog{
		ID:         s.genID.Generate(),
		ClientID:   clientID,
		Module:     plan.Module,
		CreditType: plan.CreditType,
		Amount:     amount,
		Reason:     reason,
		CreatedAt:  now,
	})
}

func (s *Sweeper) incClient(result string) {
	if s.obsMetrics != nil {
		s.obsMetrics.SweepClients.WithLabelValues(result).Inc()
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
