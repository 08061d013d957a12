package conversion

import (
	conversiondomain "github.com/scailup/creditcore/internal/conversion/domain"
	"github.com/scailup/creditcore/internal/conversion/repository"
	"github.com/scailup/creditcore/internal/conversion/service"
	pkgrepository "github.com/scailup/creditcore/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("conversion",
	fx.Provide(repository.Provide),
	fx.Provide(func(db *gorm.DB) pkgrepository.Repository[conversiondomain.Lead] {
		return pkgrepository.ProvideStore[conversiondomain.Lead](db)
	}),
	fx.Provide(service.NewService),
)
