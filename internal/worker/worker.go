package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	kafka_impl "batchmark/internal/broker/kafka"
	"batchmark/internal/config"
	"batchmark/internal/domain"
	batches_repo "batchmark/internal/repository/batches/postgres"
	minio_repo "batchmark/internal/repository/storage/minio"
	batch_uc "batchmark/internal/usecase/batch"
	"batchmark/internal/usecase/render"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

type Worker struct {
	cfg         *config.Config
	logger      *zlog.Zerolog
	db          *dbpg.DB
	broker      *kafka_impl.WorkerClient
	scheduler   *batch_uc.Scheduler
	batchRepo   *batches_repo.BatchRepository
	concurrency int
	wg          sync.WaitGroup
}

func NewWorker(cfg *config.Config, logger *zlog.Zerolog) (*Worker, error) {
	retries := cfg.DefaultRetryStrategy()
	dbOpts := &dbpg.Options{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	}

	db, err := dbpg.New(cfg.DBDSN(), []string{}, dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store, err := minio_repo.NewObjectStore(cfg, retries, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}

	renderer, err := render.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	brokerClient := kafka_impl.NewWorkerClient(cfg)
	batchRepo := batches_repo.NewBatchRepository(db, retries)
	scheduler := batch_uc.NewScheduler(store, renderer, logger, cfg.Worker.JobConcurrency)

	logger.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("topic", cfg.Kafka.TasksTopic).
		Str("group", cfg.Kafka.GroupID).
		Int("concurrency", cfg.Worker.Concurrency).
		Msg("Worker configuration")

	return &Worker{
		cfg:         cfg,
		logger:      logger,
		db:          db,
		broker:      brokerClient,
		scheduler:   scheduler,
		batchRepo:   batchRepo,
		concurrency: cfg.Worker.Concurrency,
	}, nil
}

func (w *Worker) Run() error {
	w.logger.Info().Int("concurrency", w.concurrency).Msg("Starting worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		w.logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal, stopping worker")
		cancel()
	}()

	messages := make(chan kafka.Message, w.concurrency*2)
	go w.broker.StartConsuming(ctx, messages, w.cfg.DefaultRetryStrategy())

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.consumeLoop(ctx, id, messages)
		}(i)
	}

	w.logger.Info().Msg("Worker started")
	<-ctx.Done()

	w.logger.Info().Msg("Shutting down worker gracefully")
	w.wg.Wait()

	if w.db != nil && w.db.Master != nil {
		w.db.Master.Close()
	}
	if w.broker != nil {
		w.broker.Close()
	}

	w.logger.Info().Msg("Worker stopped")
	return nil
}

func (w *Worker) consumeLoop(ctx context.Context, id int, messages <-chan kafka.Message) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Int("worker_id", id).Msg("Worker stopped")
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			start := time.Now()
			if err := w.safeProcessMessage(ctx, id, msg); err != nil {
				w.logger.Error().
					Err(err).
					Int("worker_id", id).
					Int64("offset", msg.Offset).
					Msg("Failed to process message")
				continue
			}
			if err := w.broker.Commit(ctx, msg); err != nil {
				w.logger.Error().
					Err(err).
					Int("worker_id", id).
					Int64("offset", msg.Offset).
					Msg("Failed to commit message")
				continue
			}
			w.logger.Debug().
				Int("worker_id", id).
				Int64("offset", msg.Offset).
				Dur("duration", time.Since(start)).
				Msg("Message processed and committed")
		}
	}
}

func (w *Worker) safeProcessMessage(ctx context.Context, workerID int, msg kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().
				Int("worker_id", workerID).
				Interface("panic", r).
				Int64("offset", msg.Offset).
				Msg("Panic recovered while processing message")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.processMessage(ctx, msg)
}

func (w *Worker) processMessage(ctx context.Context, msg kafka.Message) error {
	var task domain.BatchTask
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		w.logger.Error().Err(err).Int64("offset", msg.Offset).Msg("Failed to unmarshal batch task")
		return fmt.Errorf("failed to unmarshal batch task: %w", err)
	}

	w.logger.Info().
		Str("batch_id", task.ID).
		Int("jobs", len(task.Jobs)).
		Msg("Batch run started")

	sink := &progressSink{
		ctx:     ctx,
		repo:    w.batchRepo,
		batchID: task.ID,
		logger:  w.logger,
	}

	result, err := w.scheduler.Run(ctx, task.Jobs, task.Watermark, task.Output, sink)
	if err != nil {
		w.logger.Error().Err(err).Str("batch_id", task.ID).Msg("Batch run rejected")
		w.updateStatus(ctx, task.ID, domain.StatusFailed)
		return fmt.Errorf("batch run rejected: %w", err)
	}

	w.persistResult(ctx, task.ID, len(task.Jobs), result)

	if err := w.sendResult(ctx, task.ID, result); err != nil {
		w.logger.Error().Err(err).Str("batch_id", task.ID).Msg("Failed to send result")
	}

	w.logger.Info().
		Str("batch_id", task.ID).
		Str("status", string(result.Status)).
		Int("succeeded", result.Succeeded).
		Int("failed", len(result.Failed)).
		Msg("Batch run finished")
	return nil
}

func (w *Worker) persistResult(ctx context.Context, batchID string, total int, result domain.BatchResult) {
	completed := result.Succeeded + len(result.Failed)

	if err := w.batchRepo.UpdateProgress(ctx, batchID, completed, result.Succeeded); err != nil {
		w.logger.Error().Err(err).Str("batch_id", batchID).Msg("Failed to persist progress")
	}
	if len(result.Failed) > 0 {
		if err := w.batchRepo.SaveFailures(ctx, batchID, result.Failed); err != nil {
			w.logger.Error().Err(err).Str("batch_id", batchID).Msg("Failed to persist failures")
		}
	}
	w.updateStatus(ctx, batchID, result.Status)
}

func (w *Worker) sendResult(ctx context.Context, batchID string, result domain.BatchResult) error {
	payload, err := json.Marshal(resultMessage{BatchID: batchID, BatchResult: result})
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	return w.broker.SendResult(ctx, w.cfg.DefaultRetryStrategy(), []byte(batchID), payload)
}

func (w *Worker) updateStatus(ctx context.Context, batchID string, status domain.BatchStatus) {
	if err := w.batchRepo.UpdateStatus(ctx, batchID, status); err != nil {
		w.logger.Error().Err(err).Str("batch_id", batchID).Str("status", string(status)).Msg("Failed to update status")
	}
}

type resultMessage struct {
	BatchID string `json:"batch_id"`
	domain.BatchResult
}

// progressSink writes the monotonic completed counter to the database so
// status queries reflect a run in flight.
type progressSink struct {
	ctx     context.Context
	repo    *batches_repo.BatchRepository
	batchID string
	logger  *zlog.Zerolog
}

func (p *progressSink) Update(completed, total int, currentPath string) {
	if err := p.repo.UpdateCompleted(p.ctx, p.batchID, completed); err != nil {
		p.logger.Error().Err(err).Str("batch_id", p.batchID).Msg("Failed to persist progress update")
	}
}
