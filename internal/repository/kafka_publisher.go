package repository

import (
	"context"

	"SensorStream/internal/domain/models"
	domrepo "SensorStream/internal/domain/repository"
)

// MessageProducer is satisfied by *pkg/kafka.Producer.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// readingKey pins every reading to one partition so consumers see arrival order.
var readingKey = []byte("accelerometer")

// KafkaPublisher mirrors buffered readings to topic and flush summaries to
// topic.flushes.
type KafkaPublisher struct {
	producer MessageProducer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer MessageProducer, topic string) domrepo.ReadingPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// FlushTopic returns the topic flush summaries are published on.
func FlushTopic(topic string) string { return topic + ".flushes" }

// LogTopic returns the topic aggregated error logs are published on.
func LogTopic(topic string) string { return topic + ".logs" }

func (p *KafkaPublisher) PublishReading(ctx context.Context, r models.Reading) error {
	return p.producer.Publish(ctx, p.topic, readingKey, r)
}

func (p *KafkaPublisher) PublishFlush(ctx context.Context, s models.FlushSummary) error {
	return p.producer.Publish(ctx, FlushTopic(p.topic), []byte(s.Name), s)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
