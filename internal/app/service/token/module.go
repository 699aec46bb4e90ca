package token

import "go.uber.org/fx"

// Module exposes the confirmation token manager via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
