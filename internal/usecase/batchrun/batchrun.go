package batchrun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"batchmark/internal/domain"
	"batchmark/internal/usecase/layout"
	"batchmark/internal/usecase/render"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

// BatchUsecase accepts watermark runs over the API, hands them to the
// worker through the broker, and answers status and preview queries.
type BatchUsecase struct {
	repo      batchRepository
	producer  taskPublisher
	templates templateStore
	renderer  *render.Renderer
	logger    *zlog.Zerolog
	retries   retry.Strategy
}

func NewBatchUsecase(repo batchRepository, producer taskPublisher, templates templateStore, renderer *render.Renderer, logger *zlog.Zerolog, retries retry.Strategy) *BatchUsecase {
	return &BatchUsecase{
		repo:      repo,
		producer:  producer,
		templates: templates,
		renderer:  renderer,
		logger:    logger,
		retries:   retries,
	}
}

// Submit validates the configs, persists a batch record and queues the task.
// Nothing is queued when validation fails.
func (u *BatchUsecase) Submit(ctx context.Context, jobs []domain.ImageJob, wm domain.WatermarkConfig, out domain.OutputConfig) (*domain.Batch, error) {
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: batch has no jobs", domain.ErrInvalidConfig)
	}
	if err := domain.ValidateWatermarkConfig(wm); err != nil {
		return nil, err
	}
	if err := domain.ValidateOutputConfig(out); err != nil {
		return nil, err
	}

	batch := &domain.Batch{
		ID:        uuid.New().String(),
		Status:    domain.StatusIdle,
		Total:     len(jobs),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := u.repo.Save(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to save batch record: %w", err)
	}

	task := domain.BatchTask{
		ID:        batch.ID,
		Jobs:      jobs,
		Watermark: wm,
		Output:    out,
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch task: %w", err)
	}

	if err := u.producer.Send(ctx, u.retries, []byte(batch.ID), payload); err != nil {
		u.logger.Error().Err(err).Str("batch_id", batch.ID).Msg("Failed to send task to Kafka")
		u.updateStatus(ctx, batch.ID, domain.StatusFailed)
		return nil, fmt.Errorf("failed to queue batch task: %w", err)
	}

	if err := u.repo.UpdateStatus(ctx, batch.ID, domain.StatusRunning); err != nil {
		u.logger.Error().Err(err).Str("batch_id", batch.ID).Msg("Failed to update status")
	} else {
		batch.Status = domain.StatusRunning
	}

	u.logger.Info().Str("batch_id", batch.ID).Int("jobs", len(jobs)).Msg("Batch queued for processing")
	return batch, nil
}

func (u *BatchUsecase) GetBatch(ctx context.Context, id string) (*domain.Batch, error) {
	batch, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return batch, nil
}

func (u *BatchUsecase) ListBatches(ctx context.Context, limit, offset int) ([]domain.Batch, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return u.repo.List(ctx, limit, offset)
}

func (u *BatchUsecase) ListFailures(ctx context.Context, id string) ([]domain.Failure, error) {
	if _, err := u.repo.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	failures, err := u.repo.ListFailures(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch failures: %w", err)
	}
	return failures, nil
}

// Preview watermarks a single uploaded image scaled down to maxSize and
// returns it PNG encoded together with the applied scale factor. The
// placement grid is computed once at full resolution, so the preview
// matches the final export geometry.
func (u *BatchUsecase) Preview(r io.Reader, wm domain.WatermarkConfig, maxSize int) ([]byte, float64, error) {
	if err := domain.ValidateWatermarkConfig(wm); err != nil {
		return nil, 0, err
	}

	src, _, err := render.Decode(r)
	if err != nil {
		return nil, 0, err
	}

	bounds := src.Bounds()
	l, err := layout.Compute(bounds.Dx(), bounds.Dy(), wm)
	if err != nil {
		return nil, 0, err
	}

	preview, scale, err := u.renderer.Preview(src, l, wm, maxSize)
	if err != nil {
		return nil, 0, err
	}

	var buf bytes.Buffer
	out := domain.OutputConfig{Format: domain.FormatPNG, JPEGQuality: domain.DefaultJPEGQuality}
	if err := render.Encode(&buf, preview, out); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), scale, nil
}

func (u *BatchUsecase) SaveTemplate(tpl domain.Template) error {
	return u.templates.Save(tpl)
}

func (u *BatchUsecase) LoadTemplate(name string) (domain.Template, error) {
	return u.templates.Load(name)
}

func (u *BatchUsecase) ListTemplates() ([]string, error) {
	return u.templates.List()
}

func (u *BatchUsecase) DeleteTemplate(name string) error {
	return u.templates.Delete(name)
}

func (u *BatchUsecase) updateStatus(ctx context.Context, id string, status domain.BatchStatus) {
	if err := u.repo.UpdateStatus(ctx, id, status); err != nil {
		u.logger.Error().Err(err).Str("batch_id", id).Str("status", string(status)).Msg("Failed to update status")
	}
}
