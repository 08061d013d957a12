package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/scailup/creditcore/internal/client/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) clientdomain.Repository {
	return &repo{db: db}
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*clientdomain.Client, error) {
	var client clientdomain.Client
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, company_name, email, billing_date, billing_status, last_credits_reset_at, created_at, updated_at
		 FROM clients
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) EligibleForReset(ctx context.Context, sweepDate time.Time) ([]clientdomain.Client, error) {
	dayStart := sweepDate.AddDate(0, 0, -1)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var clients []clientdomain.Client
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, company_name, email, billing_date, billing_status, last_credits_reset_at, created_at, updated_at
		 FROM clients
		 WHERE billing_status = ? AND billing_date >= ? AND billing_date < ?
		 ORDER BY id`,
		clientdomain.BillingStatusPaid,
		dayStart,
		dayEnd,
	).Scan(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *repo) LockForReset(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*clientdomain.Client, error) {
	query := `SELECT id, company_name, email, billing_date, billing_status, last_credits_reset_at, created_at, updated_at
	 FROM clients
	 WHERE id = ?
	 LIMIT 1`
	if tx.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var client clientdomain.Client
	err := tx.WithContext(ctx).Raw(query, id).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) StampReset(ctx context.Context, tx *gorm.DB, id snowflake.ID, resetAt time.Time) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE clients
		 SET last_credits_reset_at = ?, updated_at = ?
		 WHERE id = ?`,
		resetAt,
		resetAt,
		id,
	).Error
}
