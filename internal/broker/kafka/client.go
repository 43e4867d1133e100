package kafka

import (
	"context"
	"errors"

	"batchmark/internal/config"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/retry"
)

// WorkerClient consumes watermark tasks and publishes run results.
type WorkerClient struct {
	tasks   *Consumer
	results *Producer
}

func NewWorkerClient(cfg *config.Config) *WorkerClient {
	return &WorkerClient{
		tasks:   NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TasksTopic, cfg.Kafka.GroupID),
		results: NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ResultsTopic),
	}
}

func (c *WorkerClient) Fetch(ctx context.Context, strategy retry.Strategy) (kafka.Message, error) {
	return c.tasks.Fetch(ctx, strategy)
}

func (c *WorkerClient) Commit(ctx context.Context, msg kafka.Message) error {
	return c.tasks.Commit(ctx, msg)
}

func (c *WorkerClient) StartConsuming(ctx context.Context, out chan<- kafka.Message, strategy retry.Strategy) {
	c.tasks.StartConsuming(ctx, out, strategy)
}

func (c *WorkerClient) SendResult(ctx context.Context, strategy retry.Strategy, key, value []byte) error {
	return c.results.Send(ctx, strategy, key, value)
}

func (c *WorkerClient) Close() error {
	var errs []error

	if c.tasks != nil {
		if err := c.tasks.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.results != nil {
		if err := c.results.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
