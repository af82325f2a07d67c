// Package event publishes storefront events to Kafka.
package event

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xenking/kart-storefront/internal/codec"
	"github.com/xenking/kart-storefront/internal/domain/cart"
	"github.com/xenking/kart-storefront/internal/domain/order"
)

// TypeOrderCompleted is the event type header of completed orders.
const TypeOrderCompleted = "OrderCompleted"

var _ order.Publisher = (*KafkaPublisher)(nil)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes order events to a Kafka topic, keyed by order
// number.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteTimeout:           10 * time.Second,
		ReadTimeout:            10 * time.Second,
		AllowAutoTopicCreation: true,
	}}
}

// PublishCompleted writes an OrderCompleted event.
func (p *KafkaPublisher) PublishCompleted(ctx context.Context, o cart.Order) error {
	msg := kafka.Message{
		Key:   []byte(o.Number),
		Value: EncodeOrderCompleted(o),
		Time:  o.CompletedAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(TypeOrderCompleted)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "write order event")
	}

	zctx.From(ctx).Debug("Published order event",
		zap.String("order", o.Number),
		zap.Int64("total", o.Totals.GrandTotal),
	)
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// EncodeOrderCompleted returns the JSON payload of an OrderCompleted event.
func EncodeOrderCompleted(o cart.Order) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("type")
	e.Str(TypeOrderCompleted)
	e.FieldStart("order")
	codec.EncodeOrder(&e, o)
	e.ObjEnd()
	return e.Bytes()
}

// Nop is a publisher that drops events. It is used when no brokers are
// configured.
type Nop struct{}

// PublishCompleted logs the order and returns nil.
func (Nop) PublishCompleted(ctx context.Context, o cart.Order) error {
	zctx.From(ctx).Debug("Order event dropped, no broker configured", zap.String("order", o.Number))
	return nil
}
