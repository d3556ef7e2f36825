package events

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher writes events to the log. It is the default when no broker is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log.Named("events")}
}

func (l *LogPublisher) Publish(_ context.Context, env Envelope) error {
	l.log.Info("order delivered event",
		zap.String("event_id", env.ID),
		zap.Int("order_id", env.Data.OrderID),
		zap.Int("client_id", env.Data.ClientID),
		zap.Int("company_id", env.Data.CompanyID),
		zap.String("balance_delta", env.Data.BalanceDelta.String()),
		zap.Int("returnables_delta", env.Data.ReturnablesDelta),
	)
	return nil
}

func (l *LogPublisher) Close() error { return nil }
