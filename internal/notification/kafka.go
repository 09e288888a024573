package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Raiser is satisfied by *Notifier.
type Raiser interface {
	Notify(ctx context.Context, in CreateInput) *Notification
}

// Consumer turns messages on the notification topic into notifications.
// Each message is a JSON CreateInput; malformed messages are committed and skipped.
type Consumer struct {
	reader   MessageReader
	notifier Raiser
	logger   *zap.Logger
}

func NewConsumer(reader MessageReader, notifier Raiser, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader:   reader,
		notifier: notifier,
		logger:   logger.Named("kafka_consumer"),
	}
}

// Run blocks until ctx is cancelled or the reader is closed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("commit failed", zap.Error(err), zap.Int64("offset", msg.Offset))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	var in CreateInput
	if err := json.Unmarshal(msg.Value, &in); err != nil {
		c.logger.Warn("skipping malformed message",
			zap.Error(err),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		return
	}
	if n := c.notifier.Notify(ctx, in); n == nil {
		c.logger.Warn("message did not produce a notification",
			zap.String("title", in.Title),
			zap.Int64("offset", msg.Offset),
		)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
