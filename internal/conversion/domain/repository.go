package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// FindLead is tenant-scoped. A lead belonging to another client is
	// indistinguishable from a missing one.
	FindLead(ctx context.Context, tx *gorm.DB, clientID, leadID snowflake.ID) (*Lead, error)

	FindContactByLead(ctx context.Context, tx *gorm.DB, clientID, leadID snowflake.ID) (*Contact, error)

	CreateContact(ctx context.Context, tx *gorm.DB, contact *Contact) error
}
