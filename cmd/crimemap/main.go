package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/crime-map-service/internal/adapter/file"
	httpadapter "github.com/couchcryptid/crime-map-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/crime-map-service/internal/adapter/kafka"
	"github.com/couchcryptid/crime-map-service/internal/config"
	"github.com/couchcryptid/crime-map-service/internal/mapview"
	"github.com/couchcryptid/crime-map-service/internal/observability"
	"github.com/couchcryptid/crime-map-service/internal/pipeline"
	"github.com/couchcryptid/crime-map-service/internal/render"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	dataset, err := file.LoadDataset(cfg.DatasetPath)
	if err != nil {
		logger.Error("failed to load dataset", "path", cfg.DatasetPath, "error", err)
		os.Exit(1)
	}
	features, err := file.LoadFeatures(cfg.GeoJSONPath)
	if err != nil {
		logger.Error("failed to load boundaries", "path", cfg.GeoJSONPath, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redraw-event publishing (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	var (
		observer mapview.Observer
		writer   *kafkaadapter.Writer
		done     = make(chan struct{})
	)
	if cfg.KafkaEnabled {
		queue := pipeline.NewQueue(cfg.EventQueueSize, cfg.BatchFlushInterval, nil, logger, metrics)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p := pipeline.New(queue, pipeline.NewEncoder(), writer, logger, metrics, cfg.BatchSize)
		observer = queue

		go func() {
			defer close(done)
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
		logger.Info("redraw-event publishing enabled", "topic", cfg.KafkaTopic, "queue_size", cfg.EventQueueSize)
	} else {
		close(done)
		logger.Info("redraw-event publishing disabled")
	}

	scene := mapview.NewScene(cfg.CanvasSize, cfg.CanvasSize)
	ctrl := mapview.New(scene, mapview.Options{
		CanvasSize: cfg.CanvasSize,
		Observer:   observer,
	}, logger, metrics)
	if err := ctrl.Initialize(dataset, features); err != nil {
		logger.Error("failed to initialize map", "error", err)
		stop()
		os.Exit(1) //nolint:gocritic // nothing to drain before the first redraw
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Deps{
		View:     scene,
		Records:  ctrl,
		Renderer: render.NewCache(ctrl, cfg.RenderCacheSize, metrics),
		Ready:    ctrl,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
