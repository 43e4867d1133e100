package batch

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"batchmark/internal/domain"
	"batchmark/internal/usecase/layout"
	"batchmark/internal/usecase/render"

	"github.com/wb-go/wbf/zlog"
)

// Scheduler drives one batch of watermark jobs. Jobs are independent; a
// failed job is recorded and the batch continues. Cancellation is cooperative
// and honored at job boundaries only, so an in-flight render always completes.
type Scheduler struct {
	store       imageStore
	renderer    *render.Renderer
	logger      *zlog.Zerolog
	concurrency int
}

func NewScheduler(store imageStore, renderer *render.Renderer, logger *zlog.Zerolog, concurrency int) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scheduler{
		store:       store,
		renderer:    renderer,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Run processes jobs in submitted order and returns the aggregated result.
// Invalid configuration fails the whole run before any job executes; every
// other failure is per-job. The returned failure list preserves submission
// order.
func (s *Scheduler) Run(ctx context.Context, jobs []domain.ImageJob, wm domain.WatermarkConfig, out domain.OutputConfig, sink ProgressSink) (domain.BatchResult, error) {
	if err := domain.ValidateWatermarkConfig(wm); err != nil {
		return domain.BatchResult{}, err
	}
	if err := domain.ValidateOutputConfig(out); err != nil {
		return domain.BatchResult{}, err
	}

	s.logger.Info().
		Int("jobs", len(jobs)).
		Int("concurrency", s.concurrency).
		Str("format", string(out.Format)).
		Msg("Batch started")

	var result domain.BatchResult
	if s.concurrency == 1 {
		result = s.runSequential(ctx, jobs, wm, out, sink)
	} else {
		result = s.runParallel(ctx, jobs, wm, out, sink)
	}

	result.Status = terminalStatus(result)

	s.logger.Info().
		Int("succeeded", result.Succeeded).
		Int("failed", len(result.Failed)).
		Bool("canceled", result.Canceled).
		Str("status", string(result.Status)).
		Msg("Batch finished")

	return result, nil
}

func (s *Scheduler) runSequential(ctx context.Context, jobs []domain.ImageJob, wm domain.WatermarkConfig, out domain.OutputConfig, sink ProgressSink) domain.BatchResult {
	var result domain.BatchResult
	total := len(jobs)

	for _, job := range jobs {
		if ctx.Err() != nil {
			result.Canceled = true
			break
		}

		if err := s.processJob(ctx, job, wm, out); err != nil {
			s.recordFailure(&result, job, err)
		} else {
			result.Succeeded++
		}

		if sink != nil {
			sink.Update(result.Succeeded+len(result.Failed), total, job.SourcePath)
		}
	}
	return result
}

// runParallel fans jobs out over a bounded pool. Progress updates stay
// serialized under a single mutex and the failure list is rebuilt in
// submission order once all in-flight jobs drain.
func (s *Scheduler) runParallel(ctx context.Context, jobs []domain.ImageJob, wm domain.WatermarkConfig, out domain.OutputConfig, sink ProgressSink) domain.BatchResult {
	total := len(jobs)
	errs := make([]error, total)
	done := make([]bool, total)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
	)
	sem := make(chan struct{}, s.concurrency)

	canceled := false
	launched := 0

dispatch:
	for i, job := range jobs {
		if ctx.Err() != nil {
			canceled = true
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			canceled = true
			break dispatch
		}

		launched = i + 1
		wg.Add(1)
		go func(i int, job domain.ImageJob) {
			defer wg.Done()
			defer func() { <-sem }()

			err := s.processJob(ctx, job, wm, out)

			mu.Lock()
			errs[i] = err
			done[i] = true
			completed++
			if sink != nil {
				sink.Update(completed, total, job.SourcePath)
			}
			mu.Unlock()
		}(i, job)
	}

	wg.Wait()

	var result domain.BatchResult
	result.Canceled = canceled
	for i := 0; i < launched; i++ {
		if !done[i] {
			continue
		}
		if errs[i] != nil {
			s.recordFailure(&result, jobs[i], errs[i])
		} else {
			result.Succeeded++
		}
	}
	return result
}

// processJob owns its decoded image for the duration of the render; the
// buffer goes out of scope right after encoding, so peak memory stays at a
// small multiple of one image regardless of batch size.
func (s *Scheduler) processJob(ctx context.Context, job domain.ImageJob, wm domain.WatermarkConfig, out domain.OutputConfig) error {
	reader, err := s.store.Open(ctx, job.SourcePath)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}

	img, _, err := render.Decode(reader)
	reader.Close()
	if err != nil {
		return err
	}

	bounds := img.Bounds()
	l, err := layout.Compute(bounds.Dx(), bounds.Dy(), wm)
	if err != nil {
		return err
	}

	composed, err := s.renderer.Apply(img, l, wm)
	if err != nil {
		return err
	}

	buf := new(bytes.Buffer)
	if err := render.Encode(buf, composed, out); err != nil {
		return err
	}

	if err := s.store.Save(ctx, job.DestinationPath, buf, int64(buf.Len()), contentTypeFor(out.Format)); err != nil {
		return fmt.Errorf("%w: failed to save output: %v", domain.ErrIOFailure, err)
	}
	return nil
}

func (s *Scheduler) recordFailure(result *domain.BatchResult, job domain.ImageJob, err error) {
	s.logger.Error().
		Err(err).
		Str("path", job.SourcePath).
		Str("kind", string(domain.KindOf(err))).
		Msg("Job failed")

	result.Failed = append(result.Failed, domain.Failure{
		Path:    job.SourcePath,
		Kind:    domain.KindOf(err),
		Message: err.Error(),
	})
}

func terminalStatus(result domain.BatchResult) domain.BatchStatus {
	switch {
	case result.Canceled:
		return domain.StatusCanceled
	case result.Succeeded == 0 && len(result.Failed) > 0:
		return domain.StatusFailed
	default:
		return domain.StatusCompleted
	}
}

func contentTypeFor(format domain.OutputFormat) string {
	if format == domain.FormatPNG {
		return "image/png"
	}
	return "image/jpeg"
}
