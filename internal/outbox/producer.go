package outbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer publishes trust events, keeping one writer per topic.
type KafkaProducer struct {
	brokers      []string
	batchTimeout time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// ProducerOption configures a KafkaProducer.
type ProducerOption func(*KafkaProducer)

// WithProducerLogger routes kafka-go writer errors to logger.
func WithProducerLogger(logger *slog.Logger) ProducerOption {
	return func(p *KafkaProducer) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithBatchTimeout bounds how long a writer waits to fill a batch. The
// dispatcher already batches outbox rows, so the default is short.
func WithBatchTimeout(d time.Duration) ProducerOption {
	return func(p *KafkaProducer) {
		if d > 0 {
			p.batchTimeout = d
		}
	}
}

// NewKafkaProducer creates a KafkaProducer for brokers.
func NewKafkaProducer(brokers []string, opts ...ProducerOption) *KafkaProducer {
	p := &KafkaProducer{
		brokers:      brokers,
		batchTimeout: 10 * time.Millisecond,
		logger:       slog.Default(),
		writers:      make(map[string]*kafka.Writer),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WriteMessages writes msgs to topic.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	writer, err := p.writerForTopic(topic)
	if err != nil {
		return err
	}
	return writer.WriteMessages(ctx, msgs...)
}

func (p *KafkaProducer) writerForTopic(topic string) (*kafka.Writer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writers == nil {
		return nil, errors.New("kafka producer is closed")
	}
	if writer, ok := p.writers[topic]; ok {
		return writer, nil
	}

	// Ledger events are keyed by user id; hashing keeps a user's score
	// changes ordered on one partition.
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(p.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Snappy,
		BatchTimeout:           p.batchTimeout,
		AllowAutoTopicCreation: false,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			p.logger.Error(fmt.Sprintf(msg, args...), "topic", topic)
		}),
	}
	p.writers[topic] = writer
	return writer, nil
}

// Close flushes and releases every writer. Writes after Close fail.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close writer for %s: %w", topic, err))
		}
	}
	p.writers = nil
	return errors.Join(errs...)
}
