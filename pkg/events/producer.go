package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	UserTopic    = "user_events"
	ProductTopic = "product_events"
	CartTopic    = "cart_events"
	OrderTopic   = "order_events"
	PaymentTopic = "payment_events"
)

func Topics() []string {
	return []string{UserTopic, ProductTopic, CartTopic, OrderTopic, PaymentTopic}
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
			WriteTimeout:           5 * time.Second,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write to %s failed: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) error { return nil }

// Memory keeps published events in order. Intended for tests.
type Memory struct {
	mu     sync.Mutex
	Events []Message
}

type Message struct {
	Topic string
	Key   string
	Event any
}

func (m *Memory) Publish(_ context.Context, topic, key string, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, Message{Topic: topic, Key: key, Event: event})
	return nil
}

func (m *Memory) ByTopic(topic string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, e := range m.Events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}
