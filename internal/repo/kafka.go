package repo

import (
	"context"
	"errors"
	"time"

	"bankclient/config"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Kafka interface {
	Publish(ctx context.Context, key, value string) error
}

type KafkaWriter struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NopPublisher drops events; used while no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string) error { return nil }

type KafkaConsumer struct {
	reader *kafka.Reader
	ps     PubSubInterface
	logger *zap.Logger
}

func NewKafkaWriter(config *config.Config, logger *zap.Logger) Kafka {
	if config.Kafka.Broker == "" {
		return NopPublisher{}
	}
	w := &kafka.Writer{
		Addr:     kafka.TCP(config.Kafka.Broker),
		Topic:    config.Kafka.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &KafkaWriter{writer: w, logger: logger.With(zap.String("component", "kafka"))}
}

func (kw *KafkaWriter) Publish(ctx context.Context, key, value string) error {
	err := kw.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: []byte(value),
	})
	if err != nil {
		kw.logger.Error("failed to write message", zap.String("key", key), zap.Error(err))
		return err
	}
	kw.logger.Debug("published activity", zap.String("key", key))
	return nil
}

func (kw *KafkaWriter) Close() error {
	return kw.writer.Close()
}

func NewKafkaConsumer(ps PubSubInterface, config *config.Config, logger *zap.Logger) (*KafkaConsumer, error) {
	if config.Kafka.Broker == "" {
		return nil, errors.New("KAFKA_BROKER is required for the relay")
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{config.Kafka.Broker},
		Topic:       config.Kafka.Topic,
		GroupID:     config.Kafka.GroupID,
		StartOffset: kafka.FirstOffset,
	})
	return &KafkaConsumer{
		reader: r,
		ps:     ps,
		logger: logger.With(zap.String("component", "relay")),
	}, nil
}

// Consume forwards every activity message to Pub/Sub until ctx is done. A message is
// committed only after Pub/Sub accepted it.
func (c *KafkaConsumer) Consume(ctx context.Context) error {
	c.logger.Info("kafka relay started")
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return c.reader.Close()
			}
			c.logger.Warn("error reading kafka message, retrying", zap.Error(err))
			if !sleep(ctx, 2*time.Second) {
				return c.reader.Close()
			}
			continue
		}

		for {
			err := c.ps.Publish(ctx, m.Value)
			if err == nil {
				break
			}
			c.logger.Warn("failed to publish to pubsub, retrying", zap.Error(err))
			if !sleep(ctx, 2*time.Second) {
				return c.reader.Close()
			}
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Warn("failed to commit kafka offset", zap.Error(err))
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
