package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	conversiondomain "github.com/scailup/creditcore/internal/conversion/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) conversiondomain.Repository {
	return &repo{db: db}
}

func (r *repo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *repo) FindLead(ctx context.Context, tx *gorm.DB, clientID, leadID snowflake.ID) (*conversiondomain.Lead, error) {
	var lead conversiondomain.Lead
	err := r.conn(tx).WithContext(ctx).Raw(
		`SELECT id, client_id, first_name, last_name, email, company, job_title, enrichment, created_at, updated_at
		 FROM leads
		 WHERE id = ? AND client_id = ?
		 LIMIT 1`,
		leadID,
		clientID,
	).Scan(&lead).Error
	if err != nil {
		return nil, err
	}
	if lead.ID == 0 {
		return nil, nil
	}
	return &lead, nil
}

func (r *repo) FindContactByLead(ctx context.Context, tx *gorm.DB, clientID, leadID snowflake.ID) (*conversiondomain.Contact, error) {
	var contact conversiondomain.Contact
	err := r.conn(tx).WithContext(ctx).Raw(
		`SELECT id, client_id, lead_id, first_name, last_name, email, company, job_title, notes, created_at, updated_at
		 FROM contacts
		 WHERE client_id = ? AND lead_id = ?
		 LIMIT 1`,
		clientID,
		leadID,
	).Scan(&contact).Error
	if err != nil {
		return nil, err
	}
	if contact.ID == 0 {
		return nil, nil
	}
	return &contact, nil
}

func (r *repo) CreateContact(ctx context.Context, tx *gorm.DB, contact *conversiondomain.Contact) error {
	return r.conn(tx).WithContext(ctx).Create(contact).Error
}
