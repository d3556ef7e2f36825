// Package events delivers post-commit settlement events to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"water-delivery/internal/core"
)

// TopicOrderDelivered is the Kafka topic and Redis channel for settled orders.
const TopicOrderDelivered = "orders.delivered"

// Publisher sends one event to a transport. Implementations must be safe for
// use by a single goroutine; the Dispatcher never calls Publish concurrently.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
	Close() error
}

// Envelope wraps an event with an id and type for consumers.
type Envelope struct {
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	OccurredAt time.Time           `json:"occurred_at"`
	Data       core.OrderDelivered `json:"data"`
}

func NewEnvelope(evt core.OrderDelivered) Envelope {
	occurred := evt.DeliveredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return Envelope{
		ID:         uuid.NewString(),
		Type:       TopicOrderDelivered,
		OccurredAt: occurred,
		Data:       evt,
	}
}

func (e Envelope) marshal() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event %s: %w", e.ID, err)
	}
	return b, nil
}
