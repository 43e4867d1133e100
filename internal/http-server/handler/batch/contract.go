package batch

import (
	"context"
	"io"

	"batchmark/internal/domain"
)

type batchUsecase interface {
	Submit(ctx context.Context, jobs []domain.ImageJob, wm domain.WatermarkConfig, out domain.OutputConfig) (*domain.Batch, error)
	GetBatch(ctx context.Context, id string) (*domain.Batch, error)
	ListBatches(ctx context.Context, limit, offset int) ([]domain.Batch, error)
	ListFailures(ctx context.Context, id string) ([]domain.Failure, error)
	Preview(r io.Reader, wm domain.WatermarkConfig, maxSize int) ([]byte, float64, error)
	SaveTemplate(tpl domain.Template) error
	LoadTemplate(name string) (domain.Template, error)
	ListTemplates() ([]string, error)
	DeleteTemplate(name string) error
}
