package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	creditdomain "github.com/scailup/creditcore/internal/credit/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) creditdomain.Repository {
	return &repo{db: db}
}

func (r *repo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *repo) AvailableBalances(ctx context.Context, tx *gorm.DB, clientID snowflake.ID, module creditdomain.Module, creditType creditdomain.CreditType, now time.Time, forUpdate bool) ([]creditdomain.CreditBalance, error) {
	db := r.conn(tx)
	query := `SELECT id, client_id, module, credit_type, amount, expires_at, origin, origin_cycle, created_at, updated_at
	 FROM credit_balances
	 WHERE client_id = ? AND module = ? AND credit_type = ? AND amount > 0 AND expires_at > ?
	 ORDER BY expires_at ASC, id ASC`
	if forUpdate && db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var balances []creditdomain.CreditBalance
	if err := db.WithContext(ctx).Raw(query, clientID, module, creditType, now).Scan(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

func (r *repo) RolloverSlices(ctx context.Context, tx *gorm.DB, clientID snowflake.ID, module creditdomain.Module, creditType creditdomain.CreditType) ([]creditdomain.CreditBalance, error) {
	db := r.conn(tx)
	query := `SELECT id, client_id, module, credit_type, amount, expires_at, origin, origin_cycle, created_at, updated_at
	 FROM credit_balances
	 WHERE client_id = ? AND module = ? AND credit_type = ? AND origin = ? AND amount > 0
	 ORDER BY origin_cycle ASC, id ASC`
	if db.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var slices []creditdomain.CreditBalance
	if err := db.WithContext(ctx).Raw(query, clientID, module, creditType, creditdomain.BalanceOriginRollover).Scan(&slices).Error; err != nil {
		return nil, err
	}
	return slices, nil
}

func (r *repo) ZeroSupersededGrants(ctx context.Context, tx *gorm.DB, clientID snowflake.ID, module creditdomain.Module, creditType creditdomain.CreditType, before time.Time, now time.Time) error {
	return r.conn(tx).WithContext(ctx).Exec(
		`UPDATE credit_balances
		 SET amount = 0, updated_at = ?
		 WHERE client_id = ? AND module = ? AND credit_type = ? AND origin = ? AND origin_cycle <= ? AND amount > 0`,
		now,
		clientID,
		module,
		creditType,
		creditdomain.BalanceOriginGrant,
		before,
	).Error
}

func (r *repo) SetAmount(ctx context.Context, tx *gorm.DB, id snowflake.ID, amount int64, now time.Time) error {
	return r.conn(tx).WithContext(ctx).Exec(
		`UPDATE credit_balances
		 SET amount = ?, updated_at = ?
		 WHERE id = ?`,
		amount,
		now,
		id,
	).Error
}

func (r *repo) CreateBalance(ctx context.Context, tx *gorm.DB, balance *creditdomain.CreditBalance) error {
	return r.conn(tx).WithContext(ctx).Create(balance).Error
}

func (r *repo) AppendLog(ctx context.Context, tx *gorm.DB, entry *creditdomain.UsageLog) error {
	return r.conn(tx).WithContext(ctx).Create(entry).Error
}

// ConsumedSince sums the period's consumption rows. Expiration adjustments
// written by the sweep are negative too but are ledger bookkeeping, not usage.
func (r *repo) ConsumedSince(ctx context.Context, tx *gorm.DB, clientID snowflake.ID, module creditdomain.Module, creditType creditdomain.CreditType, since time.Time) (int64, error) {
	var consumed int64
	err := r.conn(tx).WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(-amount), 0)
		 FROM credit_usage_logs
		 WHERE client_id = ? AND module = ? AND credit_type = ? AND amount < 0 AND reason <> ? AND created_at >= ?`,
		clientID,
		module,
		creditType,
		creditdomain.ReasonRolloverExpired,
		since,
	).Scan(&consumed).Error
	if err != nil {
		return 0, err
	}
	return consumed, nil
}

func (r *repo) FindPlan(ctx context.Context, clientID snowflake.ID, module creditdomain.Module, creditType creditdomain.CreditType) (*creditdomain.Plan, error) {
	var plan creditdomain.Plan
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, client_id, module, credit_type, monthly_limit, reset_interval, rollover_months, unlimited, activated_at, created_at, updated_at
		 FROM module_plans
		 WHERE client_id = ? AND module = ? AND credit_type = ?
		 LIMIT 1`,
		clientID,
		module,
		creditType,
	).Scan(&plan).Error
	if err != nil {
		return nil, err
	}
	if plan.ID == 0 {
		return nil, nil
	}
	return &plan, nil
}

func (r *repo) ActivePlans(ctx context.Context, tx *gorm.DB, clientID snowflake.ID) ([]creditdomain.Plan, error) {
	var plans []creditdomain.Plan
	err := r.conn(tx).WithContext(ctx).Raw(
		`SELECT id, client_id, module, credit_type, monthly_limit, reset_interval, rollover_months, unlimited, activated_at, created_at, updated_at
		 FROM module_plans
		 WHERE client_id = ? AND activated_at IS NOT NULL
		 ORDER BY module, credit_type`,
		clientID,
	).Scan(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}
