package reminder

import "go.uber.org/fx"

// Module exposes the reminder dispatcher via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
