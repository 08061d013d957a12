package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/scailup/creditcore/internal/client/domain"
	"github.com/scailup/creditcore/internal/clock"
	conversiondomain "github.com/scailup/creditcore/internal/conversion/domain"
	creditdomain "github.com/scailup/creditcore/internal/credit/domain"
	obsmetrics "github.com/scailup/creditcore/internal/observability/metrics"
	"github.com/scailup/creditcore/internal/webhook"
	"github.com/scailup/creditcore/pkg/db"
	"github.com/scailup/creditcore/pkg/db/option"
	pkgrepository "github.com/scailup/creditcore/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReasonLeadConversion labels the journal row written for each conversion.
const ReasonLeadConversion = "lead_conversion"

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       conversiondomain.Repository
	Leads      pkgrepository.Repository[conversiondomain.Lead]
	Clients    clientdomain.Repository
	Credits    creditdomain.Service
	Clock      clock.Clock
	Notifier   webhook.Notifier
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       conversiondomain.Repository
	leads      pkgrepository.Repository[conversiondomain.Lead]
	clients    clientdomain.Repository
	credits    creditdomain.Service
	clock      clock.Clock
	notifier   webhook.Notifier
	obsMetrics *obsmetrics.Metrics
}

func NewService(p ServiceParam) conversiondomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("conversion.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		leads:      p.Leads,
		clients:    p.Clients,
		credits:    p.Credits,
		clock:      p.Clock,
		notifier:   p.Notifier,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Convert(ctx context.Context, clientID, leadID snowflake.ID, notes string) (conversiondomain.ConvertResult, error) {
	result, err := s.convert(ctx, clientID, leadID, notes)
	if err != nil {
		s.incConversion("error")
		return conversiondomain.ConvertResult{}, err
	}

	if result.AlreadyConverted {
		s.incConversion("duplicate")
		return result, nil
	}

	s.incConversion("converted")
	s.emit(webhook.EventContactCreated, contactPayload(result.Contact))
	return result, nil
}

func (s *Service) ConvertBulk(ctx context.Context, clientID snowflake.ID, leadIDs []snowflake.ID, notes string) (conversiondomain.BulkResult, error) {
	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return conversiondomain.BulkResult{}, err
	}
	if client == nil {
		return conversiondomain.BulkResult{}, conversiondomain.ErrClientNotFound
	}

	var result conversiondomain.BulkResult
	var created []*conversiondomain.Contact
	for _, leadID := range leadIDs {
		item, err := s.convert(ctx, clientID, leadID, notes)
		if err != nil {
			s.incConversion("error")
			result.Failed = append(result.Failed, conversiondomain.BulkItem{
				LeadID: leadID,
				Error:  err.Error(),
			})
			continue
		}
		result.Converted = append(result.Converted, conversiondomain.BulkItem{
			LeadID:  leadID,
			Contact: item.Contact,
		})
		if item.AlreadyConverted {
			s.incConversion("duplicate")
			continue
		}
		s.incConversion("converted")
		created = append(created, item.Contact)
	}

	if len(created) > 0 {
		payloads := make([]map[string]any, 0, len(created))
		for _, contact := range created {
			payloads = append(payloads, contactPayload(contact))
		}
		s.emit(webhook.EventBulkContactsCreated, map[string]any{
			"client_id": clientID.String(),
			"contacts":  payloads,
		})
	}
	return result, nil
}

// convert runs the debit and the contact insert on one transaction. The
// unique (client_id, lead_id) index backstops races: a duplicate insert rolls
// the debit back and the existing contact is returned uncharged.
func (s *Service) convert(ctx context.Context, clientID, leadID snowflake.ID, notes string) (conversiondomain.ConvertResult, error) {
	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		return conversiondomain.ConvertResult{}, err
	}
	if client == nil {
		return conversiondomain.ConvertResult{}, conversiondomain.ErrClientNotFound
	}

	var result conversiondomain.ConvertResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lead, err := s.repo.FindLead(ctx, tx, clientID, leadID)
		if err != nil {
			return err
		}
		if lead == nil {
			return conversiondomain.ErrLeadNotFound
		}

		existing, err := s.repo.FindContactByLead(ctx, tx, clientID, leadID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = conversiondomain.ConvertResult{Contact: existing, AlreadyConverted: true}
			return nil
		}

		consumption, err := s.credits.ConsumeInTx(ctx, tx, creditdomain.ConsumeRequest{
			ClientID:   clientID,
			Module:     creditdomain.ModuleLeadEngine,
			CreditType: creditdomain.CreditTypeLeads,
			Amount:     1,
			Reason:     ReasonLeadConversion,
		})
		if err != nil {
			return err
		}

		now := s.clock.Now()
		contact := &conversiondomain.Contact{
			ID:        s.genID.Generate(),
			ClientID:  clientID,
			LeadID:    leadID,
			FirstName: lead.FirstName,
			LastName:  lead.LastName,
			Email:     lead.Email,
			Company:   lead.Company,
			JobTitle:  lead.JobTitle,
			Notes:     notes,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.CreateContact(ctx, tx, contact); err != nil {
			return err
		}

		result = conversiondomain.ConvertResult{
			Contact:          contact,
			CreditsRemaining: consumption.Remaining,
			Unlimited:        consumption.Unlimited,
		}
		return nil
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			existing, findErr := s.repo.FindContactByLead(ctx, nil, clientID, leadID)
			if findErr == nil && existing != nil {
				return conversiondomain.ConvertResult{Contact: existing, AlreadyConverted: true}, nil
			}
		}
		return conversiondomain.ConvertResult{}, err
	}
	return result, nil
}

func (s *Service) ListLeads(ctx context.Context, clientID snowflake.ID, limit int) ([]*conversiondomain.Lead, error) {
	opts := []option.QueryOption{option.WithOrder("created_at DESC, id DESC")}
	if limit > 0 {
		opts = append(opts, option.WithLimit(limit))
	}
	return s.leads.Find(ctx, &conversiondomain.Lead{ClientID: clientID}, opts...)
}

func (s *Service) emit(event string, payload any) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("webhook emit panicked", zap.Any("panic", r))
			}
		}()
		s.notifier.Emit(context.Background(), event, payload)
	}()
}

func (s *Service) incConversion(outcome string) {
	if s.obsMetrics != nil {
		s.obsMetrics.Conversions.WithLabelValues(outcome).Inc()
	}
}

func contactPayload(contact *conversiondomain.Contact) map[string]any {
	return map[string]any{
		"contact_id": contact.ID.String(),
		"client_id":  contact.ClientID.String(),
		"lead_id":    contact.LeadID.String(),
		"first_name": contact.FirstName,
		"last_name":  contact.LastName,
		"email":      contact.Email,
		"company":    contact.Company,
		"job_title":  contact.JobTitle,
		"notes":      contact.Notes,
	}
}
