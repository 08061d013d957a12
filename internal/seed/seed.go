package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	clientdomain "github.com/scailup/creditcore/internal/client/domain"
	conversiondomain "github.com/scailup/creditcore/internal/conversion/domain"
	creditdomain "github.com/scailup/creditcore/internal/credit/domain"
	"gorm.io/gorm"
)

const (
	demoCompanyName = "Acme Outbound"
	demoEmail       = "owner@acme-outbound.test"
)

// EnsureDemoClient seeds one paid client with plans, an opening allowance,
// and a few leads so a fresh local install can exercise the API immediately.
func EnsureDemoClient(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing clientdomain.Client
		err := tx.WithContext(ctx).
			Where("company_name = ?", demoCompanyName).
			First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

		client := clientdomain.Client{
			ID:            node.Generate(),
			CompanyName:   demoCompanyName,
			Email:         demoEmail,
			BillingDate:   today,
			BillingStatus: clientdomain.BillingStatusPaid,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.WithContext(ctx).Create(&client).Error; err != nil {
			return err
		}

		plans := []creditdomain.Plan{
			{Module: creditdomain.ModuleLeadEngine, CreditType: creditdomain.CreditTypeLeads, MonthlyLimit: 500, RolloverMonths: 3},
			{Module: creditdomain.ModuleMarketingEngine, CreditType: creditdomain.CreditTypeEmails, MonthlyLimit: 2000},
			{Module: creditdomain.ModuleSalesEngine, CreditType: creditdomain.CreditTypeLinkedIn, MonthlyLimit: 100},
		}
		for _, plan := range plans {
			plan.ID = node.Generate()
			plan.ClientID = client.ID
			plan.ResetInterval = "monthly"
			plan.ActivatedAt = &now
			plan.CreatedAt = now
			plan.UpdatedAt = now
			if err := tx.WithContext(ctx).Create(&plan).Error; err != nil {
				return err
			}

			balance := creditdomain.CreditBalance{
				ID:          node.Generate(),
				ClientID:    client.ID,
				Module:      plan.Module,
				CreditType:  plan.CreditType,
				Amount:      plan.MonthlyLimit,
				ExpiresAt:   today.AddDate(0, 1, 0),
				Origin:      creditdomain.BalanceOriginGrant,
				OriginCycle: today,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.WithContext(ctx).Create(&balance).Error; err != nil {
				return err
			}
		}

		leads := []conversiondomain.Lead{
			{FirstName: "Dana", LastName: "Velasquez", Email: "dana@northwind.test", Company: "Northwind", JobTitle: "VP Sales"},
			{FirstName: "Priya", LastName: "Raman", Email: "priya@contoso.test", Company: "Contoso", JobTitle: "Head of Growth"},
			{FirstName: "Jonas", LastName: "Bergman", Email: "jonas@fabrikam.test", Company: "Fabrikam", JobTitle: "CTO"},
		}
		for _, lead := range leads {
			lead.ID = node.Generate()
			lead.ClientID = client.ID
			lead.CreatedAt = now
			lead.UpdatedAt = now
			if err := tx.WithContext(ctx).Create(&lead).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
