// Package events publishes domain events (order created, payment paid,
// user registered) to Kafka for downstream consumers. Publishing is
// best-effort: a broker failure is logged and never fails the request
// that produced the event.
package events

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"likha/internal/logger"
)

// Event topics.
const (
	TopicOrders   = "likha.orders"
	TopicAccounts = "likha.accounts"
)

// Event types.
const (
	TypeUserRegistered = "user.registered"
	TypeOrderCreated   = "order.created"
	TypeOrderPaid      = "order.paid"
	TypeOrderCancelled = "order.cancelled"
)

// Envelope is the wire format for every published event.
type Envelope struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

// Publisher emits domain events keyed for partition ordering.
type Publisher interface {
	Publish(topic, key, eventType string, payload map[string]any)
	Close() error
}

// kafkaPublisher publishes events through a sarama sync producer.
type kafkaPublisher struct {
	producer sarama.SyncProducer
	log      *zap.SugaredLogger
}

// NewKafkaPublisher connects a sync producer to the given brokers.
func NewKafkaPublisher(brokers []string) (Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &kafkaPublisher{producer: producer, log: logger.Named("events")}, nil
}

func (p *kafkaPublisher) Publish(topic, key, eventType string, payload map[string]any) {
	body, err := json.Marshal(Envelope{
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		p.log.Errorw("marshal event", "type", eventType, "error", err)
		return
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(body),
	})
	if err != nil {
		p.log.Errorw("publish event", "topic", topic, "type", eventType, "error", err)
	}
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher discards all events. Used when no brokers are configured
// and in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(string, string, string, map[string]any) {}
func (NopPublisher) Close() error                                   { return nil }
