package payload

import "go.uber.org/fx"

var Module = fx.Module("payload",
	fx.Provide(NewSigner),
)
