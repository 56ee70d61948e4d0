// Package kafka publishes audit events to a Kafka topic, keyed by visitor ID
// so a visitor's history stays ordered within a partition.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/cheya01/facial-recog-poc-server/internal/audit"
)

// Producer is the subset of *kgo.Client the store needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Store struct {
	producer Producer
	topic    string
}

// New dials the brokers and returns a store plus the client so the caller can
// close it on shutdown.
func New(brokers []string, topic string) (*Store, *kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, nil, errors.New("audit topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create kafka client: %w", err)
	}
	return NewWithProducer(client, topic), client, nil
}

func NewWithProducer(producer Producer, topic string) *Store {
	return &Store{producer: producer, topic: topic}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.VisitorID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(event.Action)},
		},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}
