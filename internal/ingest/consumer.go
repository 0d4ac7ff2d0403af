package ingest

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Zereker/docstore/pkg/log"
	"github.com/Zereker/docstore/pkg/mq"
)

// Consumer drives the ingester from Kafka consumer groups.
type Consumer struct {
	logger    *slog.Logger
	ingester  *Ingester
	consumers []*mq.KafkaConsumer
}

// NewConsumer builds one Kafka consumer per configured group, all
// feeding the ingester. With Kafka disabled the consumer is inert.
func NewConsumer(ingester *Ingester, kafka mq.KafkaConfig) (*Consumer, error) {
	c := &Consumer{
		logger:   log.Logger("ingest.consumer"),
		ingester: ingester,
	}

	if !kafka.Enabled {
		c.logger.Info("kafka disabled, consumer not started")
		return c, nil
	}

	for _, config := range kafka.Consumers {
		consumer, err := mq.NewKafkaConsumer(kafka.Brokers, config, ingester.Handle)
		if err != nil {
			return nil, err
		}
		c.consumers = append(c.consumers, consumer)
	}

	return c, nil
}

// Start runs every consumer and the ingester's flush timer until the
// context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	if len(c.consumers) == 0 {
		c.logger.Info("no consumers configured, skipping start")
		return nil
	}

	c.logger.Info("starting consumers", "count", len(c.consumers))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.ingester.Run(ctx)
	})
	for _, consumer := range c.consumers {
		consumer := consumer
		g.Go(func() error {
			return consumer.Start(ctx)
		})
	}

	return g.Wait()
}

// Stop shuts every consumer down.
func (c *Consumer) Stop() error {
	c.logger.Info("stopping consumers")

	for _, consumer := range c.consumers {
		if err := consumer.Stop(); err != nil {
			c.logger.Error("failed to stop consumer", "error", err)
		}
	}

	return nil
}
