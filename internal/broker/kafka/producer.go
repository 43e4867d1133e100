package kafka

import (
	"context"

	"batchmark/internal/broker"

	wbkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
)

type Producer struct {
	producer *wbkafka.Producer
}

var _ broker.Publisher = (*Producer)(nil)

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		producer: wbkafka.NewProducer(brokers, topic),
	}
}

func (p *Producer) Send(ctx context.Context, strategy retry.Strategy, key, value []byte) error {
	return p.producer.SendWithRetry(ctx, strategy, key, value)
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
