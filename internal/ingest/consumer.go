package ingest

import (
	"context"
	"sync/atomic"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/fdk/resource-service/internal/metrics"
	"github.com/fdk/resource-service/pkg/logger"
	"go.uber.org/zap"
)

// Message outcomes recorded per source.
const (
	OutcomeProcessed      = "processed"
	OutcomeSkipped        = "skipped"
	OutcomeFailed         = "failed"
	OutcomeShortCircuited = "short_circuited"
)

const defaultPollTimeoutMs = 100

// kafkaClient is the part of *kafka.Consumer a listener uses.
type kafkaClient interface {
	Poll(timeoutMs int) kafka.Event
	CommitMessage(m *kafka.Message) ([]kafka.TopicPartition, error)
	Seek(partition kafka.TopicPartition, ignoredTimeoutMs int) error
	Assignment() ([]kafka.TopicPartition, error)
	Pause(partitions []kafka.TopicPartition) error
	Resume(partitions []kafka.TopicPartition) error
	Close() error
}

type valueDecoder interface {
	DeserializeInto(topic string, payload []byte, msg interface{}) error
}

// KafkaListener consumes one source with manual commits. A message is committed only once it
// was handled or skipped as invalid; on failure or short circuit the listener seeks back to it
// so it is delivered again.
type KafkaListener struct {
	source      Source
	client      kafkaClient
	decoder     valueDecoder
	handler     MessageHandler
	gate        Gate
	metrics     *metrics.Metrics
	log         *zap.Logger
	pollTimeout int

	paused  atomic.Bool
	running atomic.Bool
	// applied is only touched by the poll loop
	applied bool
}

var _ Listener = (*KafkaListener)(nil)

func newKafkaListener(src Source, client kafkaClient, decoder valueDecoder, handler MessageHandler, gate Gate, m *metrics.Metrics) *KafkaListener {
	return &KafkaListener{
		source:      src,
		client:      client,
		decoder:     decoder,
		handler:     handler,
		gate:        gate,
		metrics:     m,
		log:         logger.Named("kafka").With(zap.String("topic", src.Topic), zap.String("breaker", src.Breaker)),
		pollTimeout: defaultPollTimeoutMs,
	}
}

func (l *KafkaListener) Topic() string  { return l.source.Topic }
func (l *KafkaListener) Source() Source { return l.source }
func (l *KafkaListener) Pause()         { l.paused.Store(true) }
func (l *KafkaListener) Resume()        { l.paused.Store(false) }
func (l *KafkaListener) Paused() bool   { return l.paused.Load() }
func (l *KafkaListener) Running() bool  { return l.running.Load() }

// Run polls until ctx is done or the client reports a fatal error. The client is closed on
// return.
func (l *KafkaListener) Run(ctx context.Context) error {
	l.running.Store(true)
	defer l.running.Store(false)
	defer func() {
		if err := l.client.Close(); err != nil {
			l.log.Warn("close consumer failed", zap.Error(err))
		}
	}()

	l.log.Info("listener started")
	for ctx.Err() == nil {
		if err := l.pollOnce(ctx); err != nil {
			return err
		}
	}
	l.log.Info("listener stopped")
	return nil
}

func (l *KafkaListener) pollOnce(ctx context.Context) error {
	l.syncPause()

	switch ev := l.client.Poll(l.pollTimeout).(type) {
	case *kafka.Message:
		l.handle(ctx, ev)
	case kafka.Error:
		if ev.IsFatal() {
			l.log.Error("fatal consumer error", zap.Error(ev))
			return ev
		}
		l.log.Warn("consumer error", zap.String("code", ev.Code().String()), zap.Error(ev))
	}
	return nil
}

// syncPause applies the requested pause state to the current assignment. While paused it
// re-applies on every poll so partitions assigned by a rebalance are paused too.
func (l *KafkaListener) syncPause() {
	want := l.paused.Load()
	if !want && !l.applied {
		return
	}
	parts, err := l.client.Assignment()
	if err != nil {
		l.log.Warn("read assignment failed", zap.Error(err))
		return
	}

	if want {
		if len(parts) > 0 {
			if err := l.client.Pause(parts); err != nil {
				l.log.Warn("pause partitions failed", zap.Error(err))
				return
			}
		}
		if !l.applied {
			l.log.Info("listener paused")
		}
		l.applied = true
		return
	}

	if len(parts) > 0 {
		if err := l.client.Resume(parts); err != nil {
			l.log.Warn("resume partitions failed", zap.Error(err))
			return
		}
	}
	l.applied = false
	l.log.Info("listener resumed")
}

func (l *KafkaListener) handle(ctx context.Context, msg *kafka.Message) {
	// delivered before the pause took effect
	if l.paused.Load() {
		l.rewind(msg)
		return
	}

	topic := l.source.Topic
	if msg.TopicPartition.Topic != nil {
		topic = *msg.TopicPartition.Topic
	}
	decode := func(target any) error {
		return l.decoder.DeserializeInto(topic, msg.Value, target)
	}

	err := l.gate.Execute(l.source.Breaker, func() error {
		return l.handler.HandleMessage(ctx, l.source, decode)
	})

	log := l.log.With(zap.Int32("partition", msg.TopicPartition.Partition), zap.String("offset", msg.TopicPartition.Offset.String()))
	switch {
	case err == nil:
		l.commit(msg)
		l.metrics.RecordMessage(l.source.Breaker, OutcomeProcessed)
	case IsInvalid(err):
		log.Warn("skipping message", zap.Error(err))
		l.commit(msg)
		l.metrics.RecordMessage(l.source.Breaker, OutcomeSkipped)
	case IsShortCircuit(err):
		log.Debug("circuit breaker rejected message", zap.Error(err))
		l.rewind(msg)
		l.metrics.RecordMessage(l.source.Breaker, OutcomeShortCircuited)
	default:
		log.Error("message processing failed", zap.Error(err))
		l.rewind(msg)
		l.metrics.RecordMessage(l.source.Breaker, OutcomeFailed)
	}
}

func (l *KafkaListener) commit(msg *kafka.Message) {
	if _, err := l.client.CommitMessage(msg); err != nil {
		l.log.Warn("commit failed", zap.Error(err))
	}
}

// rewind seeks back so the message is redelivered.
func (l *KafkaListener) rewind(msg *kafka.Message) {
	if err := l.client.Seek(msg.TopicPartition, 0); err != nil {
		l.log.Warn("seek failed", zap.Error(err))
	}
}
