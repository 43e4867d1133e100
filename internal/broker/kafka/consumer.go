package kafka

import (
	"context"

	"batchmark/internal/broker"

	kafka "github.com/segmentio/kafka-go"
	wbkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
)

type Consumer struct {
	consumer *wbkafka.Consumer
}

var _ broker.Subscriber = (*Consumer)(nil)

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	return &Consumer{
		consumer: wbkafka.NewConsumer(brokers, topic, groupID),
	}
}

func (c *Consumer) Fetch(ctx context.Context, strategy retry.Strategy) (kafka.Message, error) {
	return c.consumer.FetchWithRetry(ctx, strategy)
}

func (c *Consumer) Commit(ctx context.Context, msg kafka.Message) error {
	return c.consumer.Commit(ctx, msg)
}

func (c *Consumer) StartConsuming(ctx context.Context, out chan<- kafka.Message, strategy retry.Strategy) {
	c.consumer.StartConsuming(ctx, out, strategy)
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}
