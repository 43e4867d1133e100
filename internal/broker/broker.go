package broker

import (
	"context"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/retry"
)

type Publisher interface {
	Send(ctx context.Context, strategy retry.Strategy, key, value []byte) error
	Close() error
}

type Subscriber interface {
	Fetch(ctx context.Context, strategy retry.Strategy) (kafka.Message, error)
	Commit(ctx context.Context, msg kafka.Message) error
	StartConsuming(ctx context.Context, out chan<- kafka.Message, strategy retry.Strategy)
	Close() error
}
