package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
	"github.com/vladislavdragonenkov/ecomstore/internal/messaging/kafka"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() (*log.Entry, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	return log.NewEntry(logger), hook
}

// deadLetterMessage собирает DLQ-сообщение в том виде, в каком его пишет outbox worker.
func deadLetterMessage(t *testing.T, partition int32, offset int64, originalTopic string) *sarama.ConsumerMessage {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"outbox_id":      "evt-1",
		"aggregate_type": domain.AggregateProduct,
		"aggregate_id":   "7",
		"event_type":     domain.EventProductStockUpdated,
		"payload":        map[string]any{"productId": 7, "quantity": -2},
		"publish_error":  "kafka: broker not available",
	})
	require.NoError(t, err)

	envelope := kafka.NewEnvelope(domain.OutboxMessage{
		ID:            "evt-1",
		AggregateType: domain.AggregateProduct,
		AggregateID:   "7",
		EventType:     domain.EventProductStockUpdated,
		Payload:       body,
	})
	value, err := json.Marshal(envelope)
	require.NoError(t, err)

	msg := &sarama.ConsumerMessage{Partition: partition, Offset: offset, Value: value}
	if originalTopic != "" {
		msg.Headers = []*sarama.RecordHeader{{Key: []byte(kafka.HeaderOriginalTopic), Value: []byte(originalTopic)}}
	}
	return msg
}

func TestExtractReplayMessage_DeadLetter(t *testing.T) {
	msg := deadLetterMessage(t, 0, 0, "ecomstore.events.custom")

	got, ok, err := extractReplayMessage(msg, "", fixedNow)
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, "ecomstore.events.custom", got.topic)
	require.Equal(t, "product:7", got.key)
	require.Equal(t, "evt-1", got.envelope.ID)
	require.Equal(t, domain.EventProductStockUpdated, got.envelope.EventType)
	require.JSONEq(t, `{"productId":7,"quantity":-2}`, string(got.envelope.Payload))
	require.Equal(t, fixedNow, got.envelope.PublishedAt)
	require.Equal(t, fixedNow.Format(time.RFC3339Nano), got.headers[kafka.HeaderReplayedAt])
	require.Equal(t, "evt-1", got.headers[kafka.HeaderOutboxID])
}

func TestExtractReplayMessage_TopicResolution(t *testing.T) {
	withoutHeader := deadLetterMessage(t, 0, 0, "")
	got, ok, err := extractReplayMessage(withoutHeader, "", fixedNow)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, kafka.TopicDomainEvents, got.topic)

	withHeader := deadLetterMessage(t, 0, 0, "from-header")
	got, _, err = extractReplayMessage(withHeader, "override", fixedNow)
	require.NoError(t, err)
	require.Equal(t, "override", got.topic)
}

func TestExtractReplayMessage_Skips(t *testing.T) {
	for _, value := range []string{`not json`, `{"foo":"bar"}`, `{"id":"evt-1","event_type":"product.created"}`} {
		_, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: []byte(value)}, "", fixedNow)
		if err != nil || ok {
			t.Fatalf("value %s: expected silent skip, got ok=%v err=%v", value, ok, err)
		}
	}
}

func TestExtractReplayMessage_MalformedDeadLetter(t *testing.T) {
	noOriginal := `{"id":"evt-1","payload":{"outbox_id":"evt-1","publish_error":"timeout"}}`
	_, ok, err := extractReplayMessage(&sarama.ConsumerMessage{Value: []byte(noOriginal)}, "", fixedNow)
	require.Error(t, err)
	require.False(t, ok)

	wrongShape := `{"id":"evt-1","payload":[1,2,3]}`
	_, ok, err = extractReplayMessage(&sarama.ConsumerMessage{Value: []byte(wrongShape)}, "", fixedNow)
	require.ErrorContains(t, err, "decode dead letter")
	require.False(t, ok)
}

func newTestReplayer(cfg config, offsets offsetClient, consumer partitionConsumerSource, producer eventPublisher) (*replayer, *test.Hook) {
	logger, hook := testLogger()
	if cfg.idleTimeout == 0 {
		cfg.idleTimeout = 50 * time.Millisecond
	}
	if cfg.limit == 0 {
		cfg.limit = 10
	}
	if cfg.sourceTopic == "" {
		cfg.sourceTopic = kafka.TopicDeadLetterQueue
	}
	return &replayer{
		cfg:      cfg,
		offsets:  offsets,
		consumer: consumer,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return fixedNow },
	}, hook
}

func TestReplayer_DryRunDoesNotPublish(t *testing.T) {
	offsets := &stubOffsetClient{partitions: []int32{0}, offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	consumer := &stubConsumerSource{consumers: map[int32]partitionConsumer{
		0: closedPartitionConsumer(
			deadLetterMessage(t, 0, 0, ""),
			&sarama.ConsumerMessage{Partition: 0, Offset: 1, Value: []byte(`{"foo":"bar"}`)},
		),
	}}

	r, hook := newTestReplayer(config{}, offsets, consumer, nil)
	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, replaySummary{processed: 2, replayed: 1, skipped: 1}, summary)

	var candidates int
	for _, entry := range hook.AllEntries() {
		if entry.Message == "dlq replay candidate" {
			candidates++
		}
	}
	require.Equal(t, 1, candidates)
}

func TestReplayer_ExecutePublishes(t *testing.T) {
	offsets := &stubOffsetClient{partitions: []int32{0}, offsets: map[int32]offsetRange{0: {oldest: 0, newest: 1}}}
	consumer := &stubConsumerSource{consumers: map[int32]partitionConsumer{
		0: closedPartitionConsumer(deadLetterMessage(t, 0, 0, "")),
	}}
	producer := &stubPublisher{}

	r, _ := newTestReplayer(config{execute: true}, offsets, consumer, producer)
	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, summary.replayed)

	require.Len(t, producer.sent, 1)
	sent := producer.sent[0]
	require.Equal(t, kafka.TopicDomainEvents, sent.topic)
	require.Equal(t, "product:7", sent.key)
	envelope, ok := sent.event.(kafka.Envelope)
	require.True(t, ok, "expected kafka.Envelope, got %T", sent.event)
	require.Equal(t, domain.EventProductStockUpdated, envelope.EventType)
}

func TestReplayer_LimitSpansPartitions(t *testing.T) {
	offsets := &stubOffsetClient{
		partitions: []int32{1, 0},
		offsets: map[int32]offsetRange{
			0: {oldest: 0, newest: 2},
			1: {oldest: 5, newest: 7},
		},
	}
	consumer := &stubConsumerSource{consumers: map[int32]partitionConsumer{
		0: closedPartitionConsumer(deadLetterMessage(t, 0, 0, ""), deadLetterMessage(t, 0, 1, "")),
		1: closedPartitionConsumer(deadLetterMessage(t, 1, 5, ""), deadLetterMessage(t, 1, 6, "")),
	}}

	r, _ := newTestReplayer(config{limit: 3}, offsets, consumer, nil)
	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, summary.processed)

	require.Len(t, consumer.calls, 2)
	require.Equal(t, consumeCall{partition: 0, offset: 0}, consumer.calls[0])
	require.Equal(t, consumeCall{partition: 1, offset: 5}, consumer.calls[1])
}

func TestReplayer_FromNewestStartsNearTail(t *testing.T) {
	offsets := &stubOffsetClient{partitions: []int32{0}, offsets: map[int32]offsetRange{0: {oldest: 10, newest: 50}}}
	consumer := &stubConsumerSource{consumers: map[int32]partitionConsumer{0: closedPartitionConsumer()}}

	r, _ := newTestReplayer(config{limit: 5, fromNewest: true}, offsets, consumer, nil)
	_, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []consumeCall{{partition: 0, offset: 45}}, consumer.calls)
}

func TestReplayer_EmptyPartitionIsNotConsumed(t *testing.T) {
	offsets := &stubOffsetClient{partitions: []int32{0}, offsets: map[int32]offsetRange{0: {oldest: 3, newest: 3}}}
	consumer := &stubConsumerSource{}

	r, _ := newTestReplayer(config{}, offsets, consumer, nil)
	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, summary.processed)
	require.Empty(t, consumer.calls)
}

func TestReplayer_ErrorBranches(t *testing.T) {
	okOffsets := func() *stubOffsetClient {
		return &stubOffsetClient{partitions: []int32{0}, offsets: map[int32]offsetRange{0: {oldest: 0, newest: 2}}}
	}

	r, _ := newTestReplayer(config{}, nil, nil, nil)
	_, err := r.Run(context.Background())
	require.ErrorContains(t, err, "client and consumer are required")

	r, _ = newTestReplayer(config{execute: true}, okOffsets(), &stubConsumerSource{}, nil)
	_, err = r.Run(context.Background())
	require.ErrorContains(t, err, "producer is required")

	r, _ = newTestReplayer(config{}, &stubOffsetClient{partitionsErr: errors.New("metadata")}, &stubConsumerSource{}, nil)
	_, err = r.Run(context.Background())
	require.ErrorContains(t, err, "get partitions")

	r, _ = newTestReplayer(config{}, &stubOffsetClient{partitions: []int32{0}, offsetErr: errors.New("offset")}, &stubConsumerSource{}, nil)
	_, err = r.Run(context.Background())
	require.ErrorContains(t, err, "get oldest offset")

	r, _ = newTestReplayer(config{}, okOffsets(), &stubConsumerSource{consumeErr: errors.New("consume")}, nil)
	_, err = r.Run(context.Background())
	require.ErrorContains(t, err, "consume partition 0")

	failing := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage),
		errors:   make(chan *sarama.ConsumerError, 1),
	}
	failing.errors <- &sarama.ConsumerError{Topic: kafka.TopicDeadLetterQueue, Err: errors.New("consumer boom")}
	r, _ = newTestReplayer(config{}, okOffsets(), &stubConsumerSource{consumers: map[int32]partitionConsumer{0: failing}}, nil)
	_, err = r.Run(context.Background())
	require.ErrorContains(t, err, "consumer error")

	producer := &stubPublisher{err: errors.New("send failed")}
	consumer := &stubConsumerSource{consumers: map[int32]partitionConsumer{0: closedPartitionConsumer(deadLetterMessage(t, 0, 0, ""))}}
	r, _ = newTestReplayer(config{execute: true}, okOffsets(), consumer, producer)
	_, err = r.Run(context.Background())
	require.ErrorContains(t, err, "publish replay message")
}

func TestReplayer_IdleTimeoutAndCancellation(t *testing.T) {
	offsets := &stubOffsetClient{partitions: []int32{0}, offsets: map[int32]offsetRange{0: {oldest: 0, newest: 10}}}
	silent := func() partitionConsumer {
		return &stubPartitionConsumer{
			messages: make(chan *sarama.ConsumerMessage),
			errors:   make(chan *sarama.ConsumerError),
		}
	}

	r, _ := newTestReplayer(config{idleTimeout: 20 * time.Millisecond}, offsets,
		&stubConsumerSource{consumers: map[int32]partitionConsumer{0: silent()}}, nil)
	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, summary.processed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, _ = newTestReplayer(config{idleTimeout: time.Minute}, offsets,
		&stubConsumerSource{consumers: map[int32]partitionConsumer{0: silent()}}, nil)
	_, err = r.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

type offsetRange struct {
	oldest int64
	newest int64
}

type stubOffsetClient struct {
	partitions    []int32
	partitionsErr error
	offsets       map[int32]offsetRange
	offsetErr     error
	closed        bool
}

func (s *stubOffsetClient) GetOffset(_ string, partition int32, marker int64) (int64, error) {
	if s.offsetErr != nil {
		return 0, s.offsetErr
	}
	r := s.offsets[partition]
	if marker == sarama.OffsetOldest {
		return r.oldest, nil
	}
	return r.newest, nil
}

func (s *stubOffsetClient) Partitions(string) ([]int32, error) {
	return s.partitions, s.partitionsErr
}

func (s *stubOffsetClient) Close() error {
	s.closed = true
	return nil
}

type consumeCall struct {
	partition int32
	offset    int64
}

type stubConsumerSource struct {
	consumers  map[int32]partitionConsumer
	consumeErr error
	calls      []consumeCall
	closed     bool
}

func (s *stubConsumerSource) ConsumePartition(_ string, partition int32, offset int64) (partitionConsumer, error) {
	s.calls = append(s.calls, consumeCall{partition: partition, offset: offset})
	if s.consumeErr != nil {
		return nil, s.consumeErr
	}
	pc, ok := s.consumers[partition]
	if !ok {
		return nil, errors.New("unexpected partition")
	}
	return pc, nil
}

func (s *stubConsumerSource) Close() error {
	s.closed = true
	return nil
}

type stubPartitionConsumer struct {
	messages chan *sarama.ConsumerMessage
	errors   chan *sarama.ConsumerError
}

func (s *stubPartitionConsumer) Messages() <-chan *sarama.ConsumerMessage { return s.messages }
func (s *stubPartitionConsumer) Errors() <-chan *sarama.ConsumerError     { return s.errors }
func (s *stubPartitionConsumer) Close() error                             { return nil }

// closedPartitionConsumer отдаёт сообщения и закрывает каналы.
func closedPartitionConsumer(messages ...*sarama.ConsumerMessage) *stubPartitionConsumer {
	pc := &stubPartitionConsumer{
		messages: make(chan *sarama.ConsumerMessage, len(messages)),
		errors:   make(chan *sarama.ConsumerError),
	}
	for _, msg := range messages {
		pc.messages <- msg
	}
	close(pc.messages)
	close(pc.errors)
	return pc
}

type sentEvent struct {
	topic   string
	key     string
	event   any
	headers map[string]string
}

type stubPublisher struct {
	sent   []sentEvent
	err    error
	closed bool
}

func (s *stubPublisher) PublishEvent(topic, key string, event any, headers map[string]string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentEvent{topic: topic, key: key, event: event, headers: headers})
	return nil
}

func (s *stubPublisher) Close() error {
	s.closed = true
	return nil
}
