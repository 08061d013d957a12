package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Module identifies the product area a ledger belongs to.
type Module string

const (
	ModuleLeadEngine      Module = "lead_engine"
	ModuleMarketingEngine Module = "marketing_engine"
	ModuleSalesEngine     Module = "sales_engine"
)

// CreditType identifies the unit kind within a module.
type CreditType string

const (
	CreditTypeLeads    CreditType = "leads"
	CreditTypeEmails   CreditType = "emails"
	CreditTypeLinkedIn CreditType = "linkedin"
)

// BalanceOrigin distinguishes fresh cycle grants from carried-forward slices.
// Rollover window math keys off OriginCycle of rollover slices, never off
// log reason strings.
type BalanceOrigin string

const (
	BalanceOriginGrant    BalanceOrigin = "grant"
	BalanceOriginRollover BalanceOrigin = "rollover"
)

// Usage log reasons. Free text is allowed on consumption; these constants
// classify ledger-internal bookkeeping rows.
const (
	ReasonMonthlyReset    = "monthly_reset"
	ReasonRollover        = "rollover"
	ReasonRolloverExpired = "rollover_expired"
	ReasonAdminGrant      = "admin_grant"
)

// CreditBalance is one grant or rollover slice. Amount only ever decreases
// after creation; a drained row stays behind for the audit trail.
type CreditBalance struct {
	ID          snowflake.ID  `gorm:"primaryKey"`
	ClientID    snowflake.ID  `gorm:"not null;index:idx_credit_balances_key,priority:1"`
	Module      Module        `gorm:"type:text;not null;index:idx_credit_balances_key,priority:2"`
	CreditType  CreditType    `gorm:"type:text;not null;index:idx_credit_balances_key,priority:3"`
	Amount      int64         `gorm:"not null"`
	ExpiresAt   time.Time     `gorm:"not null;index"`
	Origin      BalanceOrigin `gorm:"type:text;not null;default:'grant'"`
	OriginCycle time.Time     `gorm:"not null"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CreditBalance) TableName() string { return "credit_balances" }

// UsageLog is the append-only ledger journal. Negative amounts are
// consumption, positive amounts are grants and rollovers.
type UsageLog struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	ClientID   snowflake.ID      `gorm:"not null;index:idx_credit_usage_logs_key,priority:1"`
	Module     Module            `gorm:"type:text;not null;index:idx_credit_usage_logs_key,priority:2"`
	CreditType CreditType        `gorm:"type:text;not null;index:idx_credit_usage_logs_key,priority:3"`
	Amount     int64             `gorm:"not null"`
	Reason     string            `gorm:"type:text;not null"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
}

// TableName sets the database table name.
func (UsageLog) TableName() string { return "credit_usage_logs" }

// Plan sizes the recurring allowance for one (client, module, credit type).
type Plan struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	ClientID       snowflake.ID `gorm:"not null;uniqueIndex:ux_module_plans_key,priority:1"`
	Module         Module       `gorm:"type:text;not null;uniqueIndex:ux_module_plans_key,priority:2"`
	CreditType     CreditType   `gorm:"type:text;not null;uniqueIndex:ux_module_plans_key,priority:3"`
	MonthlyLimit   int64        `gorm:"not null"`
	ResetInterval  string       `gorm:"type:text;not null;default:'monthly'"`
	RolloverMonths int          `gorm:"not null;default:0"`
	Unlimited      bool         `gorm:"not null;default:false"`
	ActivatedAt    *time.Time   `gorm:""`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "module_plans" }

func (p *Plan) Active() bool {
	return p != nil && p.ActivatedAt != nil
}
