package migration

import (
	clientdomain "github.com/scailup/creditcore/internal/client/domain"
	"github.com/scailup/creditcore/internal/config"
	conversiondomain "github.com/scailup/creditcore/internal/conversion/domain"
	creditdomain "github.com/scailup/creditcore/internal/credit/domain"
	"github.com/scailup/creditcore/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if conn.Dialector.Name() == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Non-postgres targets (sqlite for local hacking) get the schema
			// from the models directly.
			if err := conn.AutoMigrate(
				&clientdomain.Client{},
				&creditdomain.Plan{},
				&creditdomain.CreditBalance{},
				&creditdomain.UsageLog{},
				&conversiondomain.Lead{},
				&conversiondomain.Contact{},
			); err != nil {
				return err
			}
		}

		if !cfg.IsProduction() {
			return seed.EnsureDemoClient(conn)
		}
		return nil
	}),
)
