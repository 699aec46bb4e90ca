package statistics

import "go.uber.org/fx"

// Module exposes the lifecycle statistics aggregator via Fx.
var Module = fx.Options(
	fx.Provide(New),
)
