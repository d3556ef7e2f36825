package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"water-delivery/internal/config"
	"water-delivery/internal/events"
)

func TestNewPublisher(t *testing.T) {
	log := zap.NewNop()

	t.Run("log", func(t *testing.T) {
		pub, err := NewPublisher(&config.Config{Events: config.EventsConfig{Driver: config.DriverLog}}, log)
		require.NoError(t, err)
		assert.IsType(t, &events.LogPublisher{}, pub)
	})

	t.Run("kafka", func(t *testing.T) {
		cfg := &config.Config{
			Events: config.EventsConfig{Driver: config.DriverKafka},
			Kafka:  config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: events.TopicOrderDelivered},
		}
		pub, err := NewPublisher(cfg, log)
		require.NoError(t, err)
		assert.IsType(t, &events.KafkaPublisher{}, pub)
		assert.NoError(t, pub.Close())
	})

	t.Run("kafka without brokers", func(t *testing.T) {
		_, err := NewPublisher(&config.Config{Events: config.EventsConfig{Driver: config.DriverKafka}}, log)
		assert.Error(t, err)
	})

	t.Run("redis", func(t *testing.T) {
		cfg := &config.Config{
			Events: config.EventsConfig{Driver: config.DriverRedis},
			Redis:  config.RedisConfig{Addr: "localhost:6379", Channel: events.TopicOrderDelivered},
		}
		pub, err := NewPublisher(cfg, log)
		require.NoError(t, err)
		assert.IsType(t, &events.RedisPublisher{}, pub)
		assert.NoError(t, pub.Close())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := NewPublisher(&config.Config{Events: config.EventsConfig{Driver: "carrier-pigeon"}}, log)
		assert.Error(t, err)
	})
}
