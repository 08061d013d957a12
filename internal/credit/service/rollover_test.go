package service

import (
	"context"
	"testing"
	"time"

	creditdomain "github.com/scailup/creditcore/internal/credit/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRolloverCarriesUnusedFromEndingCycle(t *testing.T) {
	svc, db, _, node := setupService(t)
	ctx := context.Background()

	resetDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	periodStart := resetDate.AddDate(0, -1, 0)
	clientID := createTestClient(t, db, node, &periodStart)
	createTestPlan(t, db, node, clientID, 10, 3, false)

	grantID := createTestBalance(t, db, node, clientID, 10, resetDate.AddDate(0, 0, 1), creditdomain.BalanceOriginGrant, periodStart)

	_, err := svc.Consume(ctx, creditdomain.ConsumeRequest{
		ClientID:   clientID,
		Module:     creditdomain.ModuleLeadEngine,
		CreditType: creditdomain.CreditTypeLeads,
		Amount:     4,
		Reason:     "lead_conversion",
	})
	require.NoError(t, err)

	var result creditdomain.RolloverResult
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = svc.ComputeRolloverInTx(ctx, tx, clientID, creditdomain.ModuleLeadEngine, creditdomain.CreditTypeLeads, 3, resetDate)
		return err
	}))

	assert.Equal(t, int64(6), result.RolloverAmount)
	assert.Equal(t, int64(0), result.ExpiredAmount)

	var slice creditdomain.CreditBalance
	require.NoError(t, db.Raw(
		`SELECT * FROM credit_balances WHERE client_id = ? AND origin = ? AND amount > 0`,
		clientID, creditdomain.BalanceOriginRollover,
	).Scan(&slice).Error)
	assert.Equal(t, int64(6), slice.Amount)
	assert.True(t, slice.OriginCycle.Equal(periodStart))
	assert.True(t, slice.ExpiresAt.Equal(resetDate.AddDate(0, 1, 0)))

	// The ending cycle's grant still carries its undrained remainder; the
	// sweep retires it separately.
	assert.Equal(t, int64(6), balanceAmount(t, db, grantID))
}

func TestRolloverExpiresSlicesOlderThanWindow(t *testing.T) {
	svc, db, _, node := setupService(t)
	ctx := context.Background()

	resetDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	periodStart := resetDate.AddDate(0, -1, 0)
	clientID := createTestClient(t, db, node, &periodStart)
	createTestPlan(t, db, node, clientID, 0, 3, false)

	agedCycle := resetDate.AddDate(0, -4, 0)
	agedID := createTestBalance(t, db, node, clientID, 5, resetDate, creditdomain.BalanceOriginRollover, agedCycle)

	var result creditdomain.RolloverResult
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = svc.ComputeRolloverInTx(ctx, tx, clientID, creditdomain.ModuleLeadEngine, creditdomain.CreditTypeLeads, 3, resetDate)
		return err
	}))

	assert.Equal(t, int64(5), result.ExpiredAmount)
	assert.Equal(t, int64(0), result.RolloverAmount)
	assert.Equal(t, int64(0), balanceAmount(t, db, agedID))

	var count int64
	require.NoError(t, db.Raw(
		`SELECT COUNT(*) FROM credit_balances WHERE client_id = ? AND amount > 0`, clientID,
	).Scan(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestRolloverReissuePreservesOriginCycle(t *testing.T) {
	svc, db, _, node := setupService(t)
	ctx := context.Background()

	resetDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	periodStart := resetDate.AddDate(0, -1, 0)
	clientID := createTestClient(t, db, node, &periodStart)
	createTestPlan(t, db, node, clientID, 0, 3, false)

	// Two cycles old: still inside a three month window.
	originCycle := resetDate.AddDate(0, -2, 0)
	oldID := createTestBalance(t, db, node, clientID, 8, resetDate, creditdomain.BalanceOriginRollover, originCycle)

	var result creditdomain.RolloverResult
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = svc.ComputeRolloverInTx(ctx, tx, clientID, creditdomain.ModuleLeadEngine, creditdomain.CreditTypeLeads, 3, resetDate)
		return err
	}))

	assert.Equal(t, int64(8), result.RolloverAmount)
	assert.Equal(t, int64(0), balanceAmount(t, db, oldID))

	var reissued creditdomain.CreditBalance
	require.NoError(t, db.Raw(
		`SELECT * FROM credit_balances WHERE client_id = ? AND amount > 0`, clientID,
	).Scan(&reissued).Error)
	assert.Equal(t, int64(8), reissued.Amount)
	assert.True(t, reissued.OriginCycle.Equal(originCycle))
	assert.True(t, reissued.ExpiresAt.Equal(resetDate.AddDate(0, 1, 0)))
}

func TestRolloverIgnoresExpirationAdjustments(t *testing.T) {
	svc, db, _, node := setupService(t)
	ctx := context.Background()

	resetDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	periodStart := resetDate.AddDate(0, -1, 0)
	clientID := createTestClient(t, db, node, &periodStart)
	createTestPlan(t, db, node, clientID, 10, 3, false)

	// An expiration adjustment from the previous sweep lands after the period
	// start. It must not shrink the unused allowance.
	require.NoError(t, db.Create(&creditdomain.UsageLog{
		ID:         node.Generate(),
		ClientID:   clientID,
		Module:     creditdomain.ModuleLeadEngine,
		CreditType: creditdomain.CreditTypeLeads,
		Amount:     -4,
		Reason:     creditdomain.ReasonRolloverExpired,
		CreatedAt:  periodStart.Add(2 * time.Hour),
	}).Error)

	var result creditdomain.RolloverResult
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = svc.ComputeRolloverInTx(ctx, tx, clientID, creditdomain.ModuleLeadEngine, creditdomain.CreditTypeLeads, 3, resetDate)
		return err
	}))

	assert.Equal(t, int64(10), result.RolloverAmount)
	assert.Equal(t, int64(0), result.ExpiredAmount)
}

func TestRolloverClampsOverUse(t *testing.T) {
	svc, db, _, node := setupService(t)
	ctx := context.Background()

	resetDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	periodStart := resetDate.AddDate(0, -1, 0)
	clientID := createTestClient(t, db, node, &periodStart)
	createTestPlan(t, db, node, clientID, 10, 3, false)

	// Usage above the monthly limit, possible when an admin grant topped the
	// client up mid cycle.
	createTestBalance(t, db, node, clientID, 20, resetDate.AddDate(0, 0, 1), creditdomain.BalanceOriginGrant, periodStart)
	_, err := svc.Consume(ctx, creditdomain.ConsumeRequest{
		ClientID:   clientID,
		Module:     creditdomain.ModuleLeadEngine,
		CreditType: creditdomain.CreditTypeLeads,
		Amount:     15,
		Reason:     "lead_conversion",
	})
	require.NoError(t, err)

	var result creditdomain.RolloverResult
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = svc.ComputeRolloverInTx(ctx, tx, clientID, creditdomain.ModuleLeadEngine, creditdomain.CreditTypeLeads, 3, resetDate)
		return err
	}))

	assert.Equal(t, int64(0), result.RolloverAmount)
	assert.Equal(t, int64(0), result.ExpiredAmount)
}

func TestRolloverZeroWindowIsNoop(t *testing.T) {
	svc, db, _, node := setupService(t)
	ctx := context.Background()

	resetDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	periodStart := resetDate.AddDate(0, -1, 0)
	clientID := createTestClient(t, db, node, &periodStart)
	createTestPlan(t, db, node, clientID, 10, 0, false)
	id := createTestBalance(t, db, node, clientID, 10, resetDate, creditdomain.BalanceOriginGrant, periodStart)

	var result creditdomain.RolloverResult
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = svc.ComputeRolloverInTx(ctx, tx, clientID, creditdomain.ModuleLeadEngine, creditdomain.CreditTypeLeads, 0, resetDate)
		return err
	}))

	assert.Equal(t, creditdomain.RolloverResult{}, result)
	assert.Equal(t, int64(10), balanceAmount(t, db, id))
}

func TestRolloverRequiresTransaction(t *testing.T) {
	svc, db, _, node := setupService(t)
	clientID := createTestClient(t, db, node, nil)
	createTestPlan(t, db, node, clientID, 10, 3, false)

	_, err := svc.ComputeRolloverInTx(context.Background(), nil, clientID, creditdomain.ModuleLeadEngine, creditdomain.CreditTypeLeads, 3, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, creditdomain.ErrInvalidRolloverInput)
}
