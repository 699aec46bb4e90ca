package decision

import "go.uber.org/fx"

// Module exposes the decision processor via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
