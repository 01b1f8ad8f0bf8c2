package auth

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/segmentio/kafka-go"
)

// DefaultWelcomeTopic is where account-created events are published.
const DefaultWelcomeTopic = "send-email-topic"

// NotificationPublisher pushes structured events to a message broker.
// Publishing is best effort: callers observe errors (log, metric) but never
// propagate them into the request path.
type NotificationPublisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// WelcomeEmailMessage is the account-created event consumed by the mailer.
type WelcomeEmailMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewWelcomeEmail builds the greeting sent after a successful signup.
func NewWelcomeEmail(from, name, email string) WelcomeEmailMessage {
	return WelcomeEmailMessage{
		From:    from,
		To:      email,
		Subject: "Welcome to User Service",
		Body: "Hello " + name + ",\n\n" +
			"Thank you for signing up for our service. We are excited to have you on board!\n\n" +
			"Best regards,\nUser Service Team",
	}
}

// Encode serializes the message for the wire.
func (m WelcomeEmailMessage) Encode() ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to encode welcome email")
	}
	return payload, nil
}

// KafkaPublisher writes events to a Kafka topic per message.
type KafkaPublisher struct {
	writer *kafka.Writer
}

var _ NotificationPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher builds a publisher over the given brokers. The topic is
// set per message so one writer serves every event type.
func NewKafkaPublisher(brokers ...string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Value: payload,
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to publish notification")
	}
	return nil
}

// Close flushes and shuts down the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// MemoryPublisher collects published events, for tests and local runs
// without a broker.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
}

// PublishedEvent is a captured publish call.
type PublishedEvent struct {
	Topic   string
	Payload []byte
}

var _ NotificationPublisher = (*MemoryPublisher)(nil)

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, PublishedEvent{Topic: topic, Payload: payload})
	return nil
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PublishedEvent, len(p.events))
	copy(out, p.events)
	return out
}
