package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"batchmark/internal/broker"
	kafka_impl "batchmark/internal/broker/kafka"
	"batchmark/internal/config"
	batch_h "batchmark/internal/http-server/handler/batch"
	"batchmark/internal/http-server/router"
	batches_repo "batchmark/internal/repository/batches/postgres"
	"batchmark/internal/repository/template"
	"batchmark/internal/usecase/batchrun"
	"batchmark/internal/usecase/render"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

type App struct {
	cfg      *config.Config
	server   *http.Server
	logger   *zlog.Zerolog
	db       *dbpg.DB
	producer broker.Publisher
}

func NewApp(cfg *config.Config, logger *zlog.Zerolog) (*App, error) {
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

	batchRepo := batches_repo.NewBatchRepository(db, retries)

	templates, err := template.NewStore(cfg.Templates.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create template store: %w", err)
	}

	renderer, err := render.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	producer := kafka_impl.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TasksTopic)

	batchUsecase := batchrun.NewBatchUsecase(batchRepo, producer, templates, renderer, logger, retries)

	batchHandler := batch_h.NewBatchHandler(batchUsecase, logger, cfg.Server.MaxUploadSize, cfg.Preview.MaxSize)

	h := &router.Handler{
		BatchHandler: batchHandler,
	}

	mux := router.SetupRouter(h)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		cfg:      cfg,
		server:   server,
		logger:   logger,
		db:       db,
		producer: producer,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info().Str("addr", a.cfg.Server.Addr).Msg("Starting server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.handleSignals(cancel)

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		a.logger.Error().Err(err).Msg("Server error")
		return err
	case <-ctx.Done():
		a.logger.Info().Msg("Shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("Server shutdown failed")
		}

		if a.db != nil && a.db.Master != nil {
			a.db.Master.Close()
		}

		if a.producer != nil {
			a.producer.Close()
		}

		a.logger.Info().Msg("Server stopped gracefully")
		return nil
	}
}

func (a *App) handleSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	a.logger.Info().Str("signal", sig.String()).Msg("Received signal")
	cancel()
}
