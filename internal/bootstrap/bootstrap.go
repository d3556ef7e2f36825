// Package bootstrap wires the settlement stack from configuration. Both the HTTP
// server and the operator CLI start from here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"water-delivery/internal/app"
	"water-delivery/internal/config"
	"water-delivery/internal/core"
	"water-delivery/internal/db"
	"water-delivery/internal/events"
	"water-delivery/internal/metrics"
)

// Runtime holds the long-lived resources behind an ApplicationService.
type Runtime struct {
	Pool       *pgxpool.Pool
	Metrics    *metrics.Metrics
	Dispatcher *events.Dispatcher
	Service    app.ApplicationService
}

// Build connects to the database, selects the event publisher and assembles
// the services. The caller owns the returned Runtime and must Close it.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Runtime, error) {
	pool, err := db.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	pub, err := NewPublisher(cfg, log)
	if err != nil {
		pool.Close()
		return nil, err
	}

	m := metrics.New()
	dispatcher := events.NewDispatcher(pub, cfg.Events.Buffer, cfg.Events.PublishTimeout, log, m)

	ledger := core.NewLedger(pool, cfg.Store.Timeout)
	resolver := core.NewPaymentPolicyResolver(pool)
	settlement := core.NewSettlementService(ledger, resolver, dispatcher, log, m)
	orders := core.NewOrderService(pool)

	return &Runtime{
		Pool:       pool,
		Metrics:    m,
		Dispatcher: dispatcher,
		Service:    app.NewAppService(pool, settlement, orders, resolver),
	}, nil
}

// NewPublisher returns the event publisher named by cfg.Events.Driver.
func NewPublisher(cfg *config.Config, log *zap.Logger) (events.Publisher, error) {
	switch cfg.Events.Driver {
	case config.DriverLog, "":
		return events.NewLogPublisher(log), nil
	case config.DriverKafka:
		if len(cfg.Kafka.Brokers) == 0 {
			return nil, errors.New("kafka driver selected but no brokers configured")
		}
		return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic), nil
	case config.DriverRedis:
		return events.NewRedisPublisher(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Redis.Channel), nil
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Events.Driver)
	}
}

// Close drains pending events, then releases the pool.
func (rt *Runtime) Close(ctx context.Context) error {
	err := rt.Dispatcher.Close(ctx)
	rt.Pool.Close()
	return err
}
