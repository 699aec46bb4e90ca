package schedule

import "go.uber.org/fx"

// Module exposes the delivery scheduler via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
