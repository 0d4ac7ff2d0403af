package mq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// Package-level singleton instance
var producerInstance *KafkaProducer

// Init initializes the Kafka producer singleton with config.
func Init(cfg KafkaConfig) error {
	producer, err := NewKafkaProducer(cfg)
	if err != nil {
		return err
	}
	producerInstance = producer
	return nil
}

// NewQueue returns the singleton Kafka producer instance.
// Returns nil if Kafka is not enabled or not initialized.
func NewQueue() *KafkaProducer {
	return producerInstance
}

// KafkaConfig holds broker addresses and consumer group definitions.
type KafkaConfig struct {
	Brokers   []string         `toml:"brokers"`
	Consumers []ConsumerConfig `toml:"consumers"`
	Enabled   bool             `toml:"enabled"`
}

// ConsumerConfig defines one consumer group subscription.
type ConsumerConfig struct {
	Name   string   `toml:"name"`   // consumer name, used in logs
	Group  string   `toml:"group"`  // consumer group id
	Topics []string `toml:"topics"` // subscribed topics
}

// Validate checks Kafka configuration
func (c *KafkaConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Brokers) == 0 {
		return fmt.Errorf("brokers is required when kafka is enabled")
	}
	for i, consumer := range c.Consumers {
		if consumer.Group == "" {
			return fmt.Errorf("consumers[%d].group is required", i)
		}
		if len(consumer.Topics) == 0 {
			return fmt.Errorf("consumers[%d].topics is required", i)
		}
	}
	return nil
}

// MessageHandler processes one consumed message.
type MessageHandler func(ctx context.Context, topic string, message []byte) error

// KafkaConsumer drives one consumer group subscription.
type KafkaConsumer struct {
	logger  *slog.Logger
	name    string
	topics  []string
	client  sarama.ConsumerGroup
	handler MessageHandler
	ready   chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewKafkaConsumer creates a consumer group client for the subscription.
func NewKafkaConsumer(brokers []string, config ConsumerConfig, handler MessageHandler) (*KafkaConsumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	client, err := sarama.NewConsumerGroup(brokers, config.Group, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	name := config.Name
	if name == "" {
		name = config.Group
	}

	return &KafkaConsumer{
		logger:  slog.Default().With("module", "kafka-consumer", "name", name),
		name:    name,
		topics:  config.Topics,
		client:  client,
		handler: handler,
		ready:   make(chan struct{}),
	}, nil
}

// Start begins consuming until the context is cancelled.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	if c == nil {
		return nil
	}

	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			handler := &consumerGroupHandler{
				ready:   c.ready,
				handler: c.handler,
				logger:  c.logger,
			}

			if err := c.client.Consume(ctx, c.topics, handler); err != nil {
				if err == context.Canceled {
					return
				}
				c.logger.Error("consumer error", "error", err)
				time.Sleep(time.Second)
			}

			if ctx.Err() != nil {
				return
			}

			c.ready = make(chan struct{})
		}
	}()

	// Wait until the first session is set up
	<-c.ready
	c.logger.Info("consumer started", "topics", c.topics)

	return nil
}

// Stop cancels the consume loop and closes the group client.
func (c *KafkaConsumer) Stop() error {
	if c == nil {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}

	c.wg.Wait()

	if c.client != nil {
		return c.client.Close()
	}

	return nil
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	ready   chan struct{}
	handler MessageHandler
	logger  *slog.Logger
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			h.logger.Debug("received message",
				"topic", message.Topic,
				"partition", message.Partition,
				"offset", message.Offset,
			)

			if err := h.handler(session.Context(), message.Topic, message.Value); err != nil {
				h.logger.Error("failed to handle message",
					"topic", message.Topic,
					"error", err,
				)
				// Keep consuming; a bad message must not block the claim
			}

			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// KafkaProducer publishes messages through a sync producer.
type KafkaProducer struct {
	logger *slog.Logger
	config KafkaConfig
	client sarama.SyncProducer
}

var _ MessageQueue = (*KafkaProducer)(nil)

// NewKafkaProducer creates a producer, or nil when Kafka is disabled.
func NewKafkaProducer(config KafkaConfig) (*KafkaProducer, error) {
	if !config.Enabled {
		return nil, nil
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3

	client, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	return &KafkaProducer{
		logger: slog.Default().With("module", "kafka-producer"),
		config: config,
		client: client,
	}, nil
}

// Publish sends one message to the topic.
func (p *KafkaProducer) Publish(topic string, message []byte) error {
	if p == nil {
		return nil
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(message),
	}

	partition, offset, err := p.client.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.Debug("message sent",
		"topic", topic,
		"partition", partition,
		"offset", offset,
	)

	return nil
}

// Close shuts the producer down.
func (p *KafkaProducer) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

// Subscribe exists only to satisfy MessageQueue; consuming goes through
// KafkaConsumer.
func (p *KafkaProducer) Subscribe(topic string, handler func(message []byte) error) error {
	return fmt.Errorf("kafka producer does not support subscribe, use KafkaConsumer instead")
}
