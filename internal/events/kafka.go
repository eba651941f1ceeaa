// Package events announces committed orders on Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/shop-core/internal/order"
)

const OrderPlacedType = "order.placed"

type OrderPlacedLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type OrderPlaced struct {
	Type       string            `json:"type"`
	OrderID    uuid.UUID         `json:"order_id"`
	CustomerID uuid.UUID         `json:"customer_id"`
	PlacedAt   time.Time         `json:"placed_at"`
	Total      decimal.Decimal   `json:"total"`
	Discount   decimal.Decimal   `json:"discount"`
	IsRandom   bool              `json:"is_random"`
	Lines      []OrderPlacedLine `json:"lines"`
}

func NewOrderPlaced(o *order.Order) OrderPlaced {
	lines := make([]OrderPlacedLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderPlacedLine{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	return OrderPlaced{
		Type:       OrderPlacedType,
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		PlacedAt:   o.PlacedAt,
		Total:      o.Total,
		Discount:   o.Discount,
		IsRandom:   o.IsRandom,
		Lines:      lines,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher implements order.Publisher. Messages are keyed by order ID
// so every event of one order lands on the same partition.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: NewKafkaWriter(brokers, topic)}
}

func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, o *order.Order) error {
	msg, err := encode(o)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events: failed to publish order %s: %w", o.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encode(o *order.Order) (kafka.Message, error) {
	value, err := json.Marshal(NewOrderPlaced(o))
	if err != nil {
		return kafka.Message{}, fmt.Errorf("events: failed to encode order %s: %w", o.ID, err)
	}
	return kafka.Message{
		Key:   []byte(o.ID.String()),
		Value: value,
		Time:  o.PlacedAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(OrderPlacedType)},
		},
	}, nil
}
