package materializer

import "go.uber.org/fx"

// Module exposes the order materializer via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
