package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/devportal/engine/internal/ingest"
	"github.com/devportal/engine/internal/lineage"
	"github.com/devportal/engine/internal/queue/tasks"
	"github.com/devportal/engine/internal/repository"
	"github.com/devportal/engine/pkg/config"
	"github.com/devportal/engine/pkg/database"
	"github.com/devportal/engine/pkg/logger"
	"github.com/devportal/engine/pkg/metrics"
)

// metricsAddr exposes worker metrics; the API serves its own on /metrics.
const metricsAddr = ":9091"

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	_ = rdb.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db, err := database.Open(ctx, database.Options{Driver: cfg.DatabaseDriver, DSN: cfg.DatabaseURL})
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	lineageMetrics := metrics.NewLineageMetrics(reg)
	tracker := lineage.NewTracker(repository.NewStore(db), lineage.WithMetrics(lineageMetrics))
	processor := ingest.NewProcessor(tracker, lineageMetrics)

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.AsynqConcurrency,
		Logger:      logger.Named("asynq").Sugar(),
	})

	mux := asynq.NewServeMux()
	tasks.NewLineageTaskHandler(tracker, processor, cfg.LineageInactiveHours).Register(mux)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.UTC})
	if _, err := scheduler.Register(cfg.LineageResetCron, tasks.NewReset24hTask()); err != nil {
		log.Fatal("invalid reset schedule", zap.String("cron", cfg.LineageResetCron), zap.Error(err))
	}
	sweep, err := tasks.NewMarkInactiveTask(cfg.LineageInactiveHours)
	if err != nil {
		log.Fatal("build mark-inactive task", zap.Error(err))
	}
	if _, err := scheduler.Register(cfg.LineageSweepCron, sweep); err != nil {
		log.Fatal("invalid sweep schedule", zap.String("cron", cfg.LineageSweepCron), zap.Error(err))
	}

	errCh := make(chan error, 3)
	go func() {
		log.Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()
	go func() {
		log.Info("lineage scheduler starting",
			zap.String("reset_cron", cfg.LineageResetCron),
			zap.String("sweep_cron", cfg.LineageSweepCron),
		)
		if err := scheduler.Run(); err != nil {
			errCh <- err
		}
	}()

	var consumer *ingest.Consumer
	if cfg.KafkaEnabled() {
		consumer, err = ingest.NewConsumer(ingest.ConsumerConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaObservationTopic,
			Group:   cfg.KafkaConsumerGroup,
		}, processor, lineageMetrics)
		if err != nil {
			log.Fatal("kafka client setup failed", zap.Error(err))
		}
		go func() {
			if err := consumer.Run(ctx); err != nil {
				errCh <- err
			}
		}()
	} else {
		log.Info("kafka observation feed disabled")
	}

	metricsSrv := &http.Server{
		Addr:              metricsAddr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("worker stopped with error", zap.Error(err))
	}

	// stop intake first, then let in-flight tasks finish
	stop()
	if consumer != nil {
		consumer.Close()
	}
	scheduler.Shutdown()
	srv.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
}
