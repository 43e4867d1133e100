package batchrun

import (
	"context"

	"batchmark/internal/domain"

	"github.com/wb-go/wbf/retry"
)

type batchRepository interface {
	Save(ctx context.Context, b *domain.Batch) error
	GetByID(ctx context.Context, id string) (*domain.Batch, error)
	UpdateStatus(ctx context.Context, id string, status domain.BatchStatus) error
	ListFailures(ctx context.Context, batchID string) ([]domain.Failure, error)
	List(ctx context.Context, limit, offset int) ([]domain.Batch, error)
}

type taskPublisher interface {
	Send(ctx context.Context, strategy retry.Strategy, key, value []byte) error
}

type templateStore interface {
	Save(tpl domain.Template) error
	Load(name string) (domain.Template, error)
	List() ([]string, error)
	Delete(name string) error
}
