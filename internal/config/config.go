package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Task queue backends.
const (
	QueueMemory = "memory"
	QueueKafka  = "kafka"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Storage.
	DatabasePath string
	JobStorePath string
	JobTTL       time.Duration
	DataDir      string

	// Accounts.
	JWTSecret string
	TokenTTL  time.Duration

	// Deferred task transport.
	TaskQueue      string
	KafkaBrokers   []string
	KafkaTaskTopic string
	KafkaGroupID   string
	SweepInterval  time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
	MapboxCacheTTL  time.Duration
	ZIPTablePath    string

	// Upstream APIs and the livability site.
	RentcastAPIKey  string
	RentcastBaseURL string
	YelpAPIKey      string
	YelpBaseURL     string
	AARPBaseURL     string
	UpstreamTimeout time.Duration
	UpstreamRate    float64
	BrowserEnabled  bool
	ScrapeMinDelay  time.Duration
	ScrapeMaxDelay  time.Duration

	// Inbound rate limiting per client IP.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	var errs []error
	duration := func(key, def string) time.Duration {
		d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
		if err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("invalid %s", key))
		}
		return d
	}
	positive := func(key string, def int) int {
		s := os.Getenv(key)
		if s == "" {
			return def
		}
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("invalid %s", key))
			return def
		}
		return n
	}
	boolean := func(key string, def bool) bool {
		s := os.Getenv(key)
		if s == "" {
			return def
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s", key))
			return def
		}
		return b
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DatabasePath: sharedcfg.EnvOrDefault("DATABASE_PATH", "futureroot.db"),
		JobStorePath: os.Getenv("JOBSTORE_PATH"),
		JobTTL:       duration("JOB_TTL", "24h"),
		DataDir:      sharedcfg.EnvOrDefault("DATA_DIR", "data"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  duration("TOKEN_TTL", "24h"),

		TaskQueue:      strings.ToLower(sharedcfg.EnvOrDefault("TASK_QUEUE", QueueMemory)),
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTaskTopic: sharedcfg.EnvOrDefault("KAFKA_TASK_TOPIC", "futureroot-tasks"),
		KafkaGroupID:   sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "futureroot-worker"),
		SweepInterval:  duration("SWEEP_INTERVAL", "0s"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   boolean("MAPBOX_ENABLED", mapboxToken != ""),
		MapboxTimeout:   duration("MAPBOX_TIMEOUT", "5s"),
		MapboxCacheSize: positive("MAPBOX_CACHE_SIZE", 1000),
		MapboxCacheTTL:  duration("MAPBOX_CACHE_TTL", "24h"),
		ZIPTablePath:    os.Getenv("ZIP_TABLE_PATH"),

		RentcastAPIKey:  os.Getenv("RENTCAST_API_KEY"),
		RentcastBaseURL: os.Getenv("RENTCAST_BASE_URL"),
		YelpAPIKey:      os.Getenv("YELP_API_KEY"),
		YelpBaseURL:     os.Getenv("YELP_BASE_URL"),
		AARPBaseURL:     os.Getenv("AARP_BASE_URL"),
		UpstreamTimeout: duration("UPSTREAM_TIMEOUT", "10s"),
		BrowserEnabled:  boolean("BROWSER_ENABLED", false),
		ScrapeMinDelay:  duration("SCRAPE_MIN_DELAY", "2.5s"),
		ScrapeMaxDelay:  duration("SCRAPE_MAX_DELAY", "4s"),

		RateLimitRequests: positive("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   duration("RATE_LIMIT_WINDOW", "1m"),
	}

	rate, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("UPSTREAM_RATE", "5"), 64)
	if err != nil || rate < 0 {
		errs = append(errs, errors.New("invalid UPSTREAM_RATE"))
	}
	cfg.UpstreamRate = rate

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.TaskQueue {
	case QueueMemory:
	case QueueKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when TASK_QUEUE=kafka")
		}
		if c.KafkaTaskTopic == "" {
			return errors.New("KAFKA_TASK_TOPIC is required when TASK_QUEUE=kafka")
		}
	default:
		return fmt.Errorf("TASK_QUEUE must be %q or %q, got %q", QueueMemory, QueueKafka, c.TaskQueue)
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if c.MapboxTimeout <= 0 {
		return errors.New("invalid MAPBOX_TIMEOUT")
	}
	if c.ScrapeMaxDelay < c.ScrapeMinDelay {
		return errors.New("SCRAPE_MAX_DELAY must not be less than SCRAPE_MIN_DELAY")
	}
	if c.DatabasePath == "" {
		return errors.New("DATABASE_PATH is required")
	}
	return nil
}

// RequireJWTSecret is checked by the server only; the batch CLI has no accounts.
func (c *Config) RequireJWTSecret() error {
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	return nil
}
