package entitlement

import (
	"github.com/accordhq/accord/internal/entitlement/repository"
	"github.com/accordhq/accord/internal/entitlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("entitlement.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(service.NewLedger),
)
