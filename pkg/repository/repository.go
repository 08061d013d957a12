package repository

import (
	"context"

	"github.com/scailup/creditcore/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a thin generic data-access layer over gorm. Domain
// repositories embed it for the common CRUD surface and drop to raw SQL for
// anything requiring locking or ordering guarantees.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, resourceID string, resource any) error
	Count(ctx context.Context, query *T) (int64, error)
	BatchCreate(ctx context.Context, resources []*T) error
}
