package audit

import (
	"github.com/accordhq/accord/internal/audit/repository"
	"github.com/accordhq/accord/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
