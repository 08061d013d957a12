package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Lead is a prospect sourced into a client's pool. Conversion promotes it to
// a contact; the lead row itself is immutable here.
type Lead struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	ClientID   snowflake.ID      `gorm:"not null;index"`
	FirstName  string            `gorm:"type:text"`
	LastName   string            `gorm:"type:text"`
	Email      string            `gorm:"type:text"`
	Company    string            `gorm:"type:text"`
	JobTitle   string            `gorm:"type:text"`
	Enrichment datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Lead) TableName() string { return "leads" }

// Contact is a converted lead. The (client_id, lead_id) unique index makes
// conversion idempotent at the storage layer regardless of request races.
type Contact struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	ClientID  snowflake.ID `gorm:"not null;uniqueIndex:ux_contacts_client_lead,priority:1"`
	LeadID    snowflake.ID `gorm:"not null;uniqueIndex:ux_contacts_client_lead,priority:2"`
	FirstName string       `gorm:"type:text"`
	LastName  string       `gorm:"type:text"`
	Email     string       `gorm:"type:text"`
	Company   string       `gorm:"type:text"`
	JobTitle  string       `gorm:"type:text"`
	Notes     string       `gorm:"type:text"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Contact) TableName() string { return "contacts" }
