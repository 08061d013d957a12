package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the ledger store. Reads that feed a debit must run on the
// same transaction as the debit itself.
type Repository interface {
	// AvailableBalances returns non-expired, positive balances ordered by
	// expires_at ascending. When forUpdate is set the rows are locked for
	// the remainder of the transaction.
	AvailableBalances(ctx context.Context, tx *gorm.DB, clientID snowflake.ID, module Module, creditType CreditType, now time.Time, forUpdate bool) ([]CreditBalance, error)

	// RolloverSlices returns positive rollover-origin balances regardless of
	// expiry, locked for the transaction.
	RolloverSlices(ctx context.Context, tx *gorm.DB, clientID snowflake.ID, module Module, creditType CreditType) ([]CreditBalance, error)

	SetAmount(ctx context.Context, tx *gorm.DB, id snowflake.ID, amount int64, now time.Time) error

	// ZeroSupersededGrants retires grant slices from cycles that ended at or
	// before the given date. Their unused value lives on as rollover slices.
	ZeroSupersededGrants(ctx context.Context, tx *gorm.DB, clientID snowflake.ID, module Module, creditType CreditType, before time.Time, now time.Time) error

	CreateBalance(ctx context.Context, tx *gorm.DB, balance *CreditBalance) error

	// AppendLog writes one journal row. A failure aborts the enclosing
	// transaction; the journal is never best-effort.
	AppendLog(ctx context.Context, tx *gorm.DB, entry *UsageLog) error

	ConsumedSince(ctx context.Context, tx *gorm.DB, clientID snowflake.ID, module Module, creditType CreditType, since time.Time) (int64, error)

	FindPlan(ctx context.Context, clientID snowflake.ID, module Module, creditType CreditType) (*Plan, error)

	ActivePlans(ctx context.Context, tx *gorm.DB, clientID snowflake.ID) ([]Plan, error)
}
