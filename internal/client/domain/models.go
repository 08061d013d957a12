package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// BillingStatus mirrors the billing provider's settlement state. Only paid
// clients receive allowance renewals.
type BillingStatus string

const (
	BillingStatusPaid   BillingStatus = "paid"
	BillingStatusUnpaid BillingStatus = "unpaid"
)

// Client is a tenant. BillingDate anchors the billing cycle;
// LastCreditsResetAt is the sweep's idempotency stamp, keyed by its date.
type Client struct {
	ID                 snowflake.ID  `gorm:"primaryKey"`
	CompanyName        string        `gorm:"type:text;not null"`
	Email              string        `gorm:"type:text"`
	BillingDate        time.Time     `gorm:"not null;index"`
	BillingStatus      BillingStatus `gorm:"type:text;not null;default:'unpaid'"`
	LastCreditsResetAt *time.Time    `gorm:""`
	CreatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Client) TableName() string { return "clients" }

var ErrNotFound = errors.New("client_not_found")
