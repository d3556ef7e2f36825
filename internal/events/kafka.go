package events

import (
	"context"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes events to a Kafka topic keyed by order id, so all events
// for one order land on the same partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = TopicOrderDelivered
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
			MaxAttempts:  3,
		},
	}
}

func (k *KafkaPublisher) Publish(ctx context.Context, env Envelope) error {
	msg, err := kafkaMessage(env)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, msg)
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

func kafkaMessage(env Envelope) (kafka.Message, error) {
	data, err := env.marshal()
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(strconv.Itoa(env.Data.OrderID)),
		Value: data,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(env.ID)},
			{Key: "event-type", Value: []byte(env.Type)},
		},
	}, nil
}
