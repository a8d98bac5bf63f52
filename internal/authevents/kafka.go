package authevents

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

const emitTimeout = 5 * time.Second

// KafkaEmitter implements Emitter on segmentio/kafka-go. Events are keyed by
// company so per-company ordering survives partitioning.
type KafkaEmitter struct {
	writer *kafka.Writer
}

// NewKafkaEmitter creates an emitter writing to topic. Returns nil (emission
// disabled) when brokers or topic are unconfigured. Call Close when shutting
// down.
func NewKafkaEmitter(brokers []string, topic string) *KafkaEmitter {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Emit serializes the event as JSON and writes it to the topic with a short
// timeout so a slow broker does not hold callers.
func (e *KafkaEmitter) Emit(ctx context.Context, event Event) error {
	if e == nil || e.writer == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, emitTimeout)
	defer cancel()
	return e.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(event.CompanyID),
		Value: payload,
	})
}

// Close closes the Kafka writer. Safe to call multiple times.
func (e *KafkaEmitter) Close() error {
	if e == nil || e.writer == nil {
		return nil
	}
	return e.writer.Close()
}
