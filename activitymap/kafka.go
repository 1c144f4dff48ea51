package activitymap

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	auth "github.com/goliatone/go-syr-auth"
)

// Producer is the part of *kgo.Client the sink uses
type Producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

// KafkaSink publishes normalized activity to a topic without blocking
// the request. Delivery failures are logged.
type KafkaSink struct {
	producer Producer
	topic    string
	opts     []Option
	logger   auth.Logger
}

var _ auth.ActivitySink = (*KafkaSink)(nil)

// NewKafkaSink creates a sink writing to topic
func NewKafkaSink(producer Producer, topic string, logger auth.Logger, opts ...Option) *KafkaSink {
	_, logger = auth.ResolveLogger("auth.activity.kafka", nil, logger)
	return &KafkaSink{
		producer: producer,
		topic:    topic,
		opts:     opts,
		logger:   logger,
	}
}

// Record implements auth.ActivitySink
func (s *KafkaSink) Record(ctx context.Context, event auth.ActivityEvent) error {
	normalized := Normalize(event, s.opts...)

	payload, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("failed to encode activity: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(normalized.ActorID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(normalized.Verb)},
		},
		Timestamp: normalized.OccurredAt,
	}

	s.producer.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil {
			s.logger.Warn("activity delivery failed", "topic", r.Topic, "event", normalized.Verb, "error", err)
		}
	})

	return nil
}

// NewKafkaClient creates a producer client for brokers
func NewKafkaClient(brokers []string, clientID string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return client, nil
}
