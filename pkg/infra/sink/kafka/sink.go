package kafka

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/mitchellh/mapstructure"

	"github.com/pranaysuyash/metaextract-sub011/pkg/domain/securityevent"
)

type Config struct {
	Host  string `mapstructure:"host"`
	Port  string `mapstructure:"port"`
	Topic string `mapstructure:"topic"`
}

// Sink forwards flushed security events to a Kafka topic for downstream SIEM
// consumption. Delivery is fire-and-forget per batch; the pipeline's own
// persistence is the source of truth.
type Sink struct {
	cfg      Config
	producer *kafka.Producer
}

func ValidateConfig(settings map[string]interface{}) error {
	var conf Config
	if err := mapstructure.Decode(settings, &conf); err != nil {
		return fmt.Errorf("invalid kafka config: %w", err)
	}
	if conf.Host == "" {
		return errors.New("kafka host is required")
	}
	if conf.Port == "" {
		return errors.New("kafka port is required")
	}
	if conf.Topic == "" {
		return errors.New("kafka topic is required")
	}
	return nil
}

func NewSink(settings map[string]interface{}) (*Sink, error) {
	var conf Config
	if err := mapstructure.Decode(settings, &conf); err != nil {
		return nil, fmt.Errorf("invalid kafka config: %w", err)
	}
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": fmt.Sprintf("%s:%s", conf.Host, conf.Port),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &Sink{cfg: conf, producer: producer}, nil
}

func (s *Sink) Publish(events []*securityevent.SecurityEvent) error {
	if s.producer == nil {
		return errors.New("kafka producer is not initialized")
	}
	for _, evt := range events {
		data, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		err = s.producer.Produce(&kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &s.cfg.Topic, Partition: kafka.PartitionAny},
			Key:            []byte(evt.Type),
			Value:          data,
		}, nil)
		if err != nil {
			return fmt.Errorf("failed to produce message: %w", err)
		}
	}
	return nil
}

func (s *Sink) Close() {
	if s.producer != nil {
		s.producer.Flush(5000)
		s.producer.Close()
	}
}
