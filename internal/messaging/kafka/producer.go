// Package kafka публикует доменные события каталога в Kafka через sarama.
package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const (
	defaultClientID   = "ecomstore"
	defaultMaxRetries = 5
)

var errProducerClosed = errors.New("kafka producer is not initialized")

// ProducerOption настраивает sarama-конфиг перед созданием producer.
type ProducerOption func(*sarama.Config)

// WithClientID задаёт client.id, под которым сервис виден брокеру.
func WithClientID(clientID string) ProducerOption {
	return func(cfg *sarama.Config) {
		if clientID != "" {
			cfg.ClientID = clientID
		}
	}
}

// WithMaxRetries ограничивает повторы sarama внутри одного SendMessage.
// Idempotent producer требует хотя бы один повтор, поэтому 0 игнорируется.
func WithMaxRetries(retries int) ProducerOption {
	return func(cfg *sarama.Config) {
		if retries > 0 {
			cfg.Producer.Retry.Max = retries
		}
	}
}

// producerConfig - синхронный idempotent producer с подтверждением от всех реплик.
func producerConfig(opts ...ProducerOption) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = defaultClientID
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = defaultMaxRetries
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Producer отправляет JSON-сообщения в произвольный topic.
type Producer struct {
	sync   sarama.SyncProducer
	logger *log.Entry
}

func NewProducer(brokers []string, opts ...ProducerOption) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are not configured")
	}

	syncProducer, err := sarama.NewSyncProducer(brokers, producerConfig(opts...))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return newProducer(syncProducer), nil
}

func newProducer(syncProducer sarama.SyncProducer) *Producer {
	return &Producer{
		sync:   syncProducer,
		logger: log.WithFields(log.Fields{"component": "kafka-producer", "layer": "messaging"}),
	}
}

// PublishEvent сериализует event в JSON и синхронно отправляет в topic.
// Заголовки пишутся в порядке имён, чтобы одинаковые события давали одинаковые записи.
func (p *Producer) PublishEvent(topic, key string, event any, headers map[string]string) error {
	if p == nil || p.sync == nil {
		return errProducerClosed
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal kafka event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(value),
		Headers:   recordHeaders(headers),
		Timestamp: time.Now(),
	}

	entry := p.logger.WithFields(log.Fields{"topic": topic, "key": key})
	partition, offset, err := p.sync.SendMessage(msg)
	if err != nil {
		entry.WithError(err).Error("kafka send failed")
		return fmt.Errorf("send to %s: %w", topic, err)
	}

	entry.WithFields(log.Fields{"partition": partition, "offset": offset}).Debug("kafka message sent")
	return nil
}

func recordHeaders(headers map[string]string) []sarama.RecordHeader {
	if len(headers) == 0 {
		return nil
	}
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	slices.Sort(names)

	records := make([]sarama.RecordHeader, 0, len(names))
	for _, name := range names {
		records = append(records, sarama.RecordHeader{Key: []byte(name), Value: []byte(headers[name])})
	}
	return records
}

func (p *Producer) Close() error {
	if p == nil || p.sync == nil {
		return nil
	}
	if err := p.sync.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
