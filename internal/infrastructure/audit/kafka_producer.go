// Package audit delivers login audit events to Kafka or, when Kafka is
// disabled, to the structured log.
package audit

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/perimeter/internal/config"
	"github.com/turtacn/perimeter/internal/domain/models"
	"github.com/turtacn/perimeter/internal/domain/service"
	"github.com/turtacn/perimeter/pkg/constants"
	"github.com/turtacn/perimeter/pkg/logger"
)

const (
	kafkaSink = "kafka"

	defaultQueueSize = 1024
	maxBatch         = 100
)

var (
	// ErrQueueFull is returned when events arrive faster than Kafka accepts them.
	ErrQueueFull = stderrors.New("audit queue full, event dropped")
	// ErrProducerClosed is returned after Close.
	ErrProducerClosed = stderrors.New("audit producer closed")
)

// messageWriter is the subset of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer is a Kafka-backed implementation of the AuditService.
// Events are queued and written by a background worker, so a slow or
// unreachable broker never delays the login that produced the event.
type KafkaProducer struct {
	writer       messageWriter
	writeTimeout time.Duration
	metrics      service.Metrics
	logger       logger.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan kafka.Message
	done   chan struct{}
}

// NewKafkaProducer creates a producer writing to cfg.AuditTopic.
func NewKafkaProducer(cfg *config.KafkaConfig, metrics service.Metrics, log logger.Logger) *KafkaProducer {
	writeTimeout := time.Duration(cfg.WriteTimeout) * time.Second
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.AuditTopic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           writeTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		BatchTimeout:           time.Duration(cfg.BatchTimeout) * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newKafkaProducer(writer, writeTimeout, defaultQueueSize, metrics, log)
}

func newKafkaProducer(writer messageWriter, writeTimeout time.Duration, queueSize int, metrics service.Metrics, log logger.Logger) *KafkaProducer {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	p := &KafkaProducer{
		writer:       writer,
		writeTimeout: writeTimeout,
		metrics:      metrics,
		logger:       log.WithComponent("KafkaProducer"),
		queue:        make(chan kafka.Message, queueSize),
		done:         make(chan struct{}),
	}
	go p.run()
	return p
}

// LogLoginEvent queues the event keyed by username, so one user's events stay
// ordered. It never waits for Kafka: a full queue drops the event with ErrQueueFull.
func (p *KafkaProducer) LogLoginEvent(ctx context.Context, event *models.LoginAuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error(ctx, "failed to marshal audit event", err)
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.Username),
		Value: payload,
		Time:  event.Timestamp,
	}
	if event.RequestID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: constants.HeaderRequestID, Value: []byte(event.RequestID)})
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}
	select {
	case p.queue <- msg:
		return nil
	default:
		p.metrics.RecordAuditPublish(kafkaSink, ErrQueueFull)
		p.logger.Warn(ctx, "Audit queue full, dropping event",
			logger.String("event_id", event.EventID.String()),
		)
		return ErrQueueFull
	}
}

// run writes queued events in batches until the queue is closed and drained.
func (p *KafkaProducer) run() {
	defer close(p.done)
	for msg := range p.queue {
		batch := []kafka.Message{msg}
	drain:
		for len(batch) < maxBatch {
			select {
			case next, ok := <-p.queue:
				if !ok {
					break drain
				}
				batch = append(batch, next)
			default:
				break drain
			}
		}
		p.write(batch)
	}
}

func (p *KafkaProducer) write(batch []kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()

	err := p.writer.WriteMessages(ctx, batch...)
	for range batch {
		p.metrics.RecordAuditPublish(kafkaSink, err)
	}
	if err != nil {
		p.logger.Error(ctx, "failed to write audit events to Kafka", err,
			logger.Int("events", len(batch)),
		)
	}
}

// Close stops accepting events, flushes the queue and closes the Kafka writer.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	<-p.done
	return p.writer.Close()
}
