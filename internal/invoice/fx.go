package invoice

import (
	"github.com/accordhq/accord/internal/invoice/repository"
	"github.com/accordhq/accord/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
