package notify

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dailybrew/replenish/pkg/logctx"
)

// Transport delivers a reminder to a customer. Actual email/SMS sending and
// its retries live outside this service; the engine only decides what and
// when to send.
type Transport interface {
	Send(ctx context.Context, customerID, message, confirmationLink string) error
}

// logTransport is the default binding: it records the send instead of
// performing one. Deployments plug a real transport in via fx.Replace.
type logTransport struct {
	log *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) Transport {
	return &logTransport{log: log}
}

func (t *logTransport) Send(ctx context.Context, customerID, message, confirmationLink string) error {
	logctx.FromCtx(ctx, t.log).Infow("reminder_send",
		"customer_id", customerID,
		"message", message,
		"confirmation_link", confirmationLink,
	)
	return nil
}

var Module = fx.Options(
	fx.Provide(New),
)
