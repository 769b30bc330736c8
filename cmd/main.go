package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"churn_service/internal/api"
	"churn_service/internal/config"
	"churn_service/internal/core"
	"churn_service/internal/domain/repository"
	"churn_service/internal/infrastructure/mlclient"
	"churn_service/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return err
	}

	// Dataset store
	var datasets repository.DatasetRepository
	var recorder core.AssessmentRecorder
	if cfg.PostgresURL != "" {
		postgresRepo, err := repository.NewPostgresRepository(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer postgresRepo.Close()
		if err := postgresRepo.EnsureSchema(ctx); err != nil {
			return err
		}
		datasets = postgresRepo
		if cfg.RecordAssessments {
			recorder = repository.NewPostgresAssessmentRecorder(postgresRepo.DB)
		}
	} else {
		logger.Warn("POSTGRES_URL not set, keeping snapshots in memory")
		datasets = repository.NewMemoryRepository()
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		datasets = repository.NewCachedRepository(datasets, rdb, cfg.CacheTTL, logger)
	}

	opts := []core.PredictionServiceOption{core.WithLogger(logger)}
	if cfg.MLServiceURL != "" {
		mlClient := mlclient.NewHTTPMLClient(cfg.MLServiceURL, cfg.MLTimeout, logger)
		opts = append(opts, core.WithRemote(mlClient), core.WithCatalog(mlClient))
	} else {
		logger.Warn("ML_SERVICE_URL not set, predictions use the heuristic only")
	}
	if recorder != nil {
		opts = append(opts, core.WithRecorder(recorder))
	}
	predictionService := core.NewPredictionService(policy, opts...)

	handler := api.NewHandler(predictionService, datasets, logger, cfg.MaxUploadBytes)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
