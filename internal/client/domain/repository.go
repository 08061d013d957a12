package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, id snowflake.ID) (*Client, error)

	// EligibleForReset lists paid clients whose billing date fell exactly one
	// day before the sweep date. The one-day offset gives billing-status
	// updates a settlement window before credits renew.
	EligibleForReset(ctx context.Context, sweepDate time.Time) ([]Client, error)

	// LockForReset re-reads the client inside tx with a row lock so two
	// sweeps cannot stamp the same cycle twice.
	LockForReset(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*Client, error)

	StampReset(ctx context.Context, tx *gorm.DB, id snowflake.ID, resetAt time.Time) error
}
