package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Pipeline configures the extraction-and-cache pipeline shared by the API
// and the worker. Constructed once at process start and passed by parameter;
// nothing reads the environment after load.
type Pipeline struct {
	ExtractorBaseURL string
	ExtractorAPIKey  string
	PollInterval     time.Duration
	PollMaxAttempts  int
	CacheTTL         time.Duration
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	Pipeline
	BindAddr string
}

// Worker holds configuration for the Kafka -> orchestrator refresh worker.
type Worker struct {
	Common
	Pipeline
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaConsumer string
}

// Retention configures the expired-entry cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	BatchSize int
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "education_cache"),
	}
}

func loadPipeline() (Pipeline, error) {
	p := Pipeline{
		ExtractorBaseURL: getEnv("EXTRACTOR_BASE_URL", "https://api.firecrawl.dev"),
		ExtractorAPIKey:  getEnv("EXTRACTOR_API_KEY", ""),
		PollInterval:     getDuration("POLL_INTERVAL", "3s"),
		PollMaxAttempts:  getInt("POLL_MAX_ATTEMPTS", 30),
		CacheTTL:         getDuration("CACHE_TTL", "168h"),
	}

	if p.PollInterval <= 0 {
		return p, fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if p.PollMaxAttempts <= 0 {
		return p, fmt.Errorf("POLL_MAX_ATTEMPTS must be positive")
	}
	if p.CacheTTL <= 0 {
		return p, fmt.Errorf("CACHE_TTL must be positive")
	}

	// An empty API key is allowed: every dispatch fails and batches run on
	// fallback data.
	return p, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	pipeline, err := loadPipeline()
	if err != nil {
		return nil, err
	}

	c := &API{
		Common:   loadCommon(),
		Pipeline: pipeline,
		BindAddr: getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
	}
	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	pipeline, err := loadPipeline()
	if err != nil {
		return nil, err
	}

	c := &Worker{
		Common:        loadCommon(),
		Pipeline:      pipeline,
		KafkaBrokers:  splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "education_refresh"),
		KafkaConsumer: getEnv("KAFKA_CONSUMER_GROUP", "refresh-worker"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common:    loadCommon(),
		Interval:  getDuration("RETENTION_CRON", "24h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 100),
	}

	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_CRON must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
