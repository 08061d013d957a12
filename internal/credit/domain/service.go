package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ConsumeRequest struct {
	ClientID   snowflake.ID
	Module     Module
	CreditType CreditType
	Amount     int64
	Reason     string
}

type ConsumptionResult struct {
	Consumed  int64 `json:"consumed"`
	Remaining int64 `json:"remaining"`
	Unlimited bool  `json:"unlimited,omitempty"`
}

type GrantRequest struct {
	ClientID    snowflake.ID
	Module      Module
	CreditType  CreditType
	Amount      int64
	Reason      string
	Origin      BalanceOrigin
	OriginCycle time.Time
	ExpiresAt   time.Time
}

type RolloverResult struct {
	RolloverAmount int64 `json:"rollover_amount"`
	ExpiredAmount  int64 `json:"expired_amount"`
}

// BalanceSummary is a display-only snapshot. It must never gate an action;
// Consume re-derives sufficiency under its own lock.
type BalanceSummary struct {
	MonthlyLimit     int64  `json:"monthly_limit"`
	UsedThisPeriod   int64  `json:"used_this_period"`
	RemainingCredits int64  `json:"remaining_credits"`
	RolloverMonths   int    `json:"rollover_months"`
	ResetInterval    string `json:"reset_interval"`
	Unlimited        bool   `json:"unlimited,omitempty"`
}

type Service interface {
	// Consume atomically checks sufficiency and debits the oldest-expiring
	// balances first, in its own transaction.
	Consume(ctx context.Context, req ConsumeRequest) (ConsumptionResult, error)

	// ConsumeInTx is Consume running inside a caller-owned transaction so a
	// debit can commit or roll back together with a domain mutation.
	ConsumeInTx(ctx context.Context, tx *gorm.DB, req ConsumeRequest) (ConsumptionResult, error)

	// Grant inserts a balance slice plus the matching positive journal row.
	Grant(ctx context.Context, req GrantRequest) error

	Balance(ctx context.Context, clientID snowflake.ID, module Module, creditType CreditType) (BalanceSummary, error)

	// ComputeRolloverInTx re-issues in-window rollover slices, zeroes the
	// aged-out ones, and reports both sums. Runs inside the sweep's
	// per-client transaction.
	ComputeRolloverInTx(ctx context.Context, tx *gorm.DB, clientID snowflake.ID, module Module, creditType CreditType, rolloverMonths int, resetDate time.Time) (RolloverResult, error)
}
