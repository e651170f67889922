package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecomstore/internal/messaging/kafka"
)

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionConsumerSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error)
	Close() error
}

// eventPublisher - подмножество kafka.Producer, нужное для повторной публикации.
type eventPublisher interface {
	PublishEvent(topic, key string, event any, headers map[string]string) error
	Close() error
}

type saramaConsumerAdapter struct {
	consumer sarama.Consumer
}

func (a saramaConsumerAdapter) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	pc, err := a.consumer.ConsumePartition(topic, partition, offset)
	if err != nil {
		return nil, err
	}
	return pc, nil
}

func (a saramaConsumerAdapter) Close() error {
	return a.consumer.Close()
}

type replayDependencies struct {
	offsets  offsetClient
	consumer partitionConsumerSource
	producer eventPublisher
}

func (d replayDependencies) close() {
	if d.producer != nil {
		_ = d.producer.Close()
	}
	if d.consumer != nil {
		_ = d.consumer.Close()
	}
	if d.offsets != nil {
		_ = d.offsets.Close()
	}
}

var newReplayDependencies = func(cfg config) (replayDependencies, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.ClientID = "ecomstore-dlq-reprocess"
	consumerConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(cfg.brokers, consumerConfig)
	if err != nil {
		return replayDependencies{}, fmt.Errorf("create kafka client: %w", err)
	}

	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return replayDependencies{}, fmt.Errorf("create kafka consumer: %w", err)
	}
	deps := replayDependencies{offsets: client, consumer: saramaConsumerAdapter{consumer: consumer}}

	if !cfg.execute {
		return deps, nil
	}

	producer, err := kafka.NewProducer(cfg.brokers, kafka.WithClientID("ecomstore-dlq-reprocess"))
	if err != nil {
		deps.close()
		return replayDependencies{}, fmt.Errorf("create kafka producer: %w", err)
	}
	deps.producer = producer
	return deps, nil
}

// deadLetterRecord повторяет тело, которое outbox worker кладёт в Envelope.Payload DLQ.
type deadLetterRecord struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
}

type replayMessage struct {
	topic    string
	key      string
	envelope kafka.Envelope
	headers  map[string]string
}

type replaySummary struct {
	processed int
	replayed  int
	skipped   int
}

func (s *replaySummary) add(other replaySummary) {
	s.processed += other.processed
	s.replayed += other.replayed
	s.skipped += other.skipped
}

type replayer struct {
	cfg      config
	offsets  offsetClient
	consumer partitionConsumerSource
	producer eventPublisher
	logger   *log.Entry
	now      func() time.Time
}

// Run обходит партиции source-топика по возрастанию, пока не исчерпан limit.
func (r *replayer) Run(ctx context.Context) (replaySummary, error) {
	var summary replaySummary

	if r.offsets == nil || r.consumer == nil {
		return summary, errors.New("kafka client and consumer are required")
	}
	if r.cfg.execute && r.producer == nil {
		return summary, errors.New("producer is required in execute mode")
	}

	partitions, err := r.offsets.Partitions(r.cfg.sourceTopic)
	if err != nil {
		return summary, fmt.Errorf("get partitions for topic %s: %w", r.cfg.sourceTopic, err)
	}
	if len(partitions) == 0 {
		r.logger.WithField("topic", r.cfg.sourceTopic).Warn("source topic has no partitions")
		return summary, nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	for _, partition := range partitions {
		remaining := r.cfg.limit - summary.processed
		if remaining <= 0 {
			break
		}
		stats, err := r.replayPartition(ctx, partition, remaining)
		summary.add(stats)
		if err != nil {
			return summary, err
		}
	}
	return summary, nil
}

func (r *replayer) replayPartition(ctx context.Context, partition int32, limit int) (replaySummary, error) {
	var stats replaySummary

	oldest, err := r.offsets.GetOffset(r.cfg.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := r.offsets.GetOffset(r.cfg.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	start := oldest
	if r.cfg.fromNewest {
		start = max(newest-int64(limit), oldest)
	}

	pc, err := r.consumer.ConsumePartition(r.cfg.sourceTopic, partition, start)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idle := time.NewTimer(r.cfg.idleTimeout)
	defer idle.Stop()

	errs := pc.Errors()

	for stats.processed < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-idle.C:
			return stats, nil
		case consumerErr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if consumerErr != nil {
				return stats, fmt.Errorf("partition %d consumer error: %w", partition, consumerErr)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return stats, nil
			}
			idle.Reset(r.cfg.idleTimeout)

			if err := r.handle(msg, &stats); err != nil {
				return stats, err
			}
			if msg.Offset+1 >= newest {
				return stats, nil
			}
		}
	}
	return stats, nil
}

func (r *replayer) handle(msg *sarama.ConsumerMessage, stats *replaySummary) error {
	stats.processed++
	entry := r.logger.WithFields(log.Fields{"partition": msg.Partition, "offset": msg.Offset})

	replay, ok, err := extractReplayMessage(msg, r.cfg.targetTopic, r.now())
	if err != nil {
		stats.skipped++
		entry.WithError(err).Warn("skip malformed dlq message")
		return nil
	}
	if !ok {
		stats.skipped++
		entry.Debug("skip message without dead letter body")
		return nil
	}

	entry = entry.WithFields(log.Fields{
		"target_topic": replay.topic,
		"key":          replay.key,
		"event_type":   replay.envelope.EventType,
	})
	if !r.cfg.execute {
		entry.Info("dlq replay candidate")
		stats.replayed++
		return nil
	}

	if err := r.producer.PublishEvent(replay.topic, replay.key, replay.envelope, replay.headers); err != nil {
		return fmt.Errorf("publish replay message: %w", err)
	}
	entry.Info("dlq message replayed")
	stats.replayed++
	return nil
}

// extractReplayMessage восстанавливает исходное событие из DLQ-сообщения.
// ok=false - сообщение не похоже на dead letter и пропускается.
func extractReplayMessage(msg *sarama.ConsumerMessage, targetTopic string, now time.Time) (replayMessage, bool, error) {
	var envelope kafka.Envelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil || len(envelope.Payload) == 0 {
		return replayMessage{}, false, nil
	}

	var record deadLetterRecord
	if err := json.Unmarshal(envelope.Payload, &record); err != nil {
		return replayMessage{}, false, fmt.Errorf("decode dead letter: %w", err)
	}
	if len(record.Payload) == 0 {
		return replayMessage{}, false, errors.New("dead letter does not contain original event payload")
	}

	replayed := kafka.Envelope{
		ID:            firstNonEmpty(record.OutboxID, envelope.ID),
		AggregateType: firstNonEmpty(record.AggregateType, envelope.AggregateType),
		AggregateID:   firstNonEmpty(record.AggregateID, envelope.AggregateID),
		EventType:     firstNonEmpty(record.EventType, envelope.EventType),
		Payload:       record.Payload,
		PublishedAt:   now.UTC(),
	}

	topic := firstNonEmpty(targetTopic, headerValue(msg, kafka.HeaderOriginalTopic), kafka.TopicDomainEvents)
	return replayMessage{
		topic:    topic,
		key:      kafka.PartitionKey(replayed.AggregateType, replayed.AggregateID, replayed.ID),
		envelope: replayed,
		headers: map[string]string{
			kafka.HeaderEventType:     replayed.EventType,
			kafka.HeaderAggregateType: replayed.AggregateType,
			kafka.HeaderOutboxID:      replayed.ID,
			kafka.HeaderReplayedAt:    now.UTC().Format(time.RFC3339Nano),
		},
	}, true, nil
}

func headerValue(msg *sarama.ConsumerMessage, name string) string {
	for _, header := range msg.Headers {
		if header != nil && string(header.Key) == name {
			return string(header.Value)
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
