package utils

import (
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/gracechurch/church-backend/config"
)

// NewKafkaReader returns a consumer-group reader for the notification topic,
// or nil when no brokers are configured.
func NewKafkaReader(cfg *config.Config) *kafka.Reader {
	if len(cfg.KafkaBrokers) == 0 {
		return nil
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		GroupID:        cfg.KafkaGroupID,
		Topic:          cfg.KafkaNotificationTopic,
		MinBytes:       1,
		MaxBytes:       1 << 20,
		MaxWait:        time.Second,
		CommitInterval: 0,
		StartOffset:    kafka.LastOffset,
	})
}
