package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"
)

const (
	TypeCartSaved   = "cart.saved"
	TypeCartDeleted = "cart.deleted"
)

// CartEvent announces a change to a user's cart record.
type CartEvent struct {
	Type             string    `json:"type"`
	UserID           string    `json:"userId"`
	LineCount        int       `json:"lineCount"`
	ItemCount        int       `json:"itemCount"`
	RemoteCartHandle *string   `json:"remoteCartHandle,omitempty"`
	OccurredAt       time.Time `json:"occurredAt"`
}

// Publisher emits cart events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev CartEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

// KafkaPublisher writes events to one topic keyed by user id, so all events
// for a user land on the same partition in order.
type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkaGo.Hash{},
		RequiredAcks:           kafkaGo.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev CartEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal cart event: %w", err)
	}
	if err := p.w.WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte(ev.UserID),
		Value: payload,
		Headers: []kafkaGo.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}); err != nil {
		return fmt.Errorf("publish %s for %s: %w", ev.Type, ev.UserID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// Nop discards events. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, CartEvent) error { return nil }
func (Nop) Close() error                             { return nil }
