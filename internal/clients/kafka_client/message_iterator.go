package kafka_client

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

type KafkaMessageIterator struct {
	consumer *kafka.Consumer
	ctx      context.Context
}

func NewKafkaMessageIterator(ctx context.Context, consumer *kafka.Consumer) *KafkaMessageIterator {
	return &KafkaMessageIterator{
		consumer: consumer,
		ctx:      ctx,
	}
}

// Next waits up to POLL_TIMEOUT for a message. It returns nil, nil when none
// arrived so callers can service timers between polls.
func (it *KafkaMessageIterator) Next() (*kafka.Message, error) {
	if it.consumer == nil {
		return nil, errors.New("[KafkaIterator] Kafka consumer has not been initialized")
	}

	for i := 0; i < MAX_RETRIES; i++ {
		if err := it.ctx.Err(); err != nil {
			slog.Warn("[KafkaIterator] Context cancelled, stopping iterator")
			return nil, err
		}

		msg, err := it.consumer.ReadMessage(POLL_TIMEOUT)
		if err == nil {
			return msg, nil
		}

		var kafkaErr kafka.Error
		if errors.As(err, &kafkaErr) {
			switch kafkaErr.Code() {
			case kafka.ErrTimedOut:
				return nil, nil
			case kafka.ErrAllBrokersDown:
				slog.Error("[KafkaIterator] All Kafka brokers are down. Aborting")
				return nil, err
			}
		}

		slog.Warn("[KafkaIterator] Failed to read message, retrying...",
			slog.Int("attempt", i+1),
			slog.Int("max_retries", MAX_RETRIES),
			slog.String("error", err.Error()))

		select {
		case <-it.ctx.Done():
			return nil, it.ctx.Err()
		case <-time.After(RETRY_DELAY):
		}
	}
	return nil, errors.New("[KafkaIterator] Failed to read message after retries")
}
