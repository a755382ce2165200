package moderation

import (
	"github.com/accordhq/accord/internal/moderation/detector"
	"github.com/accordhq/accord/internal/moderation/repository"
	"github.com/accordhq/accord/internal/moderation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("moderation.service",
	fx.Provide(repository.Provide),
	fx.Provide(detector.New),
	fx.Provide(service.NewService),
)
