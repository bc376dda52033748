package kafka_client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

type KafkaCommitHandler struct {
	consumer *kafka.Consumer
	ctx      context.Context
}

func NewCommitHandler(ctx context.Context, consumer *kafka.Consumer) *KafkaCommitHandler {
	return &KafkaCommitHandler{
		consumer: consumer,
		ctx:      ctx,
	}
}

// Commit commits the offsets following msgs. Only the highest offset of each
// partition is committed.
func (ch *KafkaCommitHandler) Commit(msgs []*kafka.Message) error {
	if ch.consumer == nil {
		return errors.New("[KafkaCommitHandler] Kafka consumer has not been initialized")
	}

	offsets := NextOffsets(msgs)
	if len(offsets) == 0 {
		return nil
	}

	for i := 0; i < MAX_RETRIES; i++ {
		if err := ch.ctx.Err(); err != nil {
			slog.Warn("[KafkaCommitHandler] Context canceled, stopping commit")
			return err
		}

		_, err := ch.consumer.CommitOffsets(offsets)
		if err == nil {
			slog.Info("[KafkaCommitHandler] Successfully committed offsets",
				slog.Int("partitions", len(offsets)),
				slog.Int("messages", len(msgs)))
			return nil
		}

		slog.Warn("[KafkaCommitHandler] Failed to commit offsets, retrying...",
			slog.Int("attempt", i+1),
			slog.String("error", err.Error()))

		var kafkaErr kafka.Error
		if errors.As(err, &kafkaErr) && kafkaErr.Code() == kafka.ErrAllBrokersDown {
			slog.Error("[KafkaCommitHandler] All Kafka brokers are down. Aborting commit")
			return err
		}

		time.Sleep(RETRY_DELAY)
	}

	return fmt.Errorf("[KafkaCommitHandler] Failed to commit offsets after %d retries", MAX_RETRIES)
}

// NextOffsets returns, per topic partition, the offset after the last of msgs.
func NextOffsets(msgs []*kafka.Message) []kafka.TopicPartition {
	type partitionKey struct {
		topic     string
		partition int32
	}

	latest := make(map[partitionKey]kafka.TopicPartition)
	var order []partitionKey
	for _, msg := range msgs {
		if msg == nil || msg.TopicPartition.Topic == nil {
			continue
		}
		tp := msg.TopicPartition
		key := partitionKey{topic: *tp.Topic, partition: tp.Partition}

		prev, seen := latest[key]
		if !seen {
			order = append(order, key)
		}
		if !seen || tp.Offset+1 > prev.Offset {
			latest[key] = kafka.TopicPartition{Topic: tp.Topic, Partition: tp.Partition, Offset: tp.Offset + 1}
		}
	}

	offsets := make([]kafka.TopicPartition, 0, len(order))
	for _, key := range order {
		offsets = append(offsets, latest[key])
	}
	return offsets
}
