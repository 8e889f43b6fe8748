package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const (
	minCanvasSize = 100
	maxCanvasSize = 4096
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Map inputs and rendering.
	DatasetPath     string
	GeoJSONPath     string
	CanvasSize      int
	RenderCacheSize int

	// Redraw-event publishing (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaTopic         string
	BatchSize          int
	BatchFlushInterval time.Duration
	EventQueueSize     int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	canvasSize, err := parseCanvasSize()
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DatasetPath:     sharedcfg.EnvOrDefault("DATASET_PATH", "data/map_pie_data_monthly.json"),
		GeoJSONPath:     sharedcfg.EnvOrDefault("GEOJSON_PATH", "data/police_districts.geojson"),
		CanvasSize:      canvasSize,
		RenderCacheSize: parsePositiveInt("RENDER_CACHE_SIZE", 64),

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       brokers,
		KafkaTopic:         sharedcfg.EnvOrDefault("KAFKA_TOPIC", "crime-map-redraws"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		EventQueueSize:     parsePositiveInt("EVENT_QUEUE_SIZE", 256),
	}

	if cfg.DatasetPath == "" {
		return nil, errors.New("DATASET_PATH is required")
	}
	if cfg.GeoJSONPath == "" {
		return nil, errors.New("GEOJSON_PATH is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when publishing is enabled")
	}

	return cfg, nil
}

func parseCanvasSize() (int, error) {
	s := os.Getenv("CANVAS_SIZE")
	if s == "" {
		return 600, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minCanvasSize || n > maxCanvasSize {
		return 0, fmt.Errorf("invalid CANVAS_SIZE %q: want an integer in [%d, %d]", s, minCanvasSize, maxCanvasSize)
	}
	return n, nil
}

func parsePositiveInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}
