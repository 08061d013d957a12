package credit

import (
	"github.com/scailup/creditcore/internal/cache"
	"github.com/scailup/creditcore/internal/credit/repository"
	"github.com/scailup/creditcore/internal/credit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("credit.service",
	fx.Provide(cache.NewPlanCache),
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
