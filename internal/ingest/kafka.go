package ingest

import (
	"fmt"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/confluentinc/confluent-kafka-go/v2/schemaregistry"
	"github.com/confluentinc/confluent-kafka-go/v2/schemaregistry/serde"
	"github.com/confluentinc/confluent-kafka-go/v2/schemaregistry/serde/avro"
	"github.com/fdk/resource-service/internal/metrics"
	"github.com/fdk/resource-service/pkg/config"
)

// NewKafkaListeners creates one subscribed listener per configured source and registers each
// with the manager. All listeners share the consumer group and the schema registry client.
func NewKafkaListeners(cfg config.KafkaConfig, handler MessageHandler, mgr *Manager, m *metrics.Metrics) ([]*KafkaListener, error) {
	registry, err := schemaregistry.NewClient(schemaregistry.NewConfig(cfg.SchemaRegistryURL))
	if err != nil {
		return nil, fmt.Errorf("create schema registry client: %w", err)
	}
	decoder, err := avro.NewGenericDeserializer(registry, serde.ValueSerde, avro.NewDeserializerConfig())
	if err != nil {
		return nil, fmt.Errorf("create avro deserializer: %w", err)
	}

	var out []*KafkaListener
	for _, src := range Sources(cfg.Topics()) {
		consumer, err := newConsumer(cfg)
		if err != nil {
			closeAll(out)
			return nil, err
		}
		if err := consumer.SubscribeTopics([]string{src.Topic}, nil); err != nil {
			_ = consumer.Close()
			closeAll(out)
			return nil, fmt.Errorf("subscribe to %s: %w", src.Topic, err)
		}
		l := newKafkaListener(src, consumer, decoder, handler, mgr, m)
		mgr.Register(src.Breaker, l)
		out = append(out, l)
	}
	return out, nil
}

func newConsumer(cfg config.KafkaConfig) (*kafka.Consumer, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":        strings.Join(cfg.BrokerList(), ","),
		"group.id":                 cfg.GroupID,
		"auto.offset.reset":        cfg.AutoOffsetReset,
		"enable.auto.commit":       false,
		"allow.auto.create.topics": false,
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return consumer, nil
}

func closeAll(ls []*KafkaListener) {
	for _, l := range ls {
		_ = l.client.Close()
	}
}
