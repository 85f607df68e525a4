package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from environment variables or config files.
type Config struct {
	AppEnv          string        `mapstructure:"APP_ENV" validate:"required,oneof=development staging production test"`
	HTTPAddr        string        `mapstructure:"HTTP_ADDR" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"required"`

	LogLevel  string `mapstructure:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"required,oneof=json console"`

	Database DatabaseConfig `mapstructure:",squash"`

	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"omitempty,hostname_port"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	AsynqConcurrency int `mapstructure:"ASYNQ_CONCURRENCY" validate:"gte=1,lte=1000"`

	GoMaxProcs int `mapstructure:"GOMAXPROCS" validate:"gte=0,lte=4096"`

	API        APIConfig        `mapstructure:",squash"`
	Kafka      KafkaConfig      `mapstructure:",squash"`
	Breaker    BreakerConfig    `mapstructure:",squash"`
	UnionGraph UnionGraphConfig `mapstructure:",squash"`
	Webhook    WebhookConfig    `mapstructure:",squash"`
}

// DatabaseConfig controls the connection pool. DATABASE_URL accepts postgres:// DSNs or
// sqlite:// paths.
type DatabaseConfig struct {
	URL             string        `mapstructure:"DATABASE_URL" validate:"required,url|uri"`
	MaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
}

// APIConfig covers the HTTP surface. TrustedProxyHops is the number of reverse proxies that
// append to X-Forwarded-For in front of the service; 0 ignores the header.
type APIConfig struct {
	Key              string  `mapstructure:"API_KEY"`
	RateLimitRPS     float64 `mapstructure:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst   int     `mapstructure:"RATE_LIMIT_BURST" validate:"gte=1"`
	TrustedProxyHops int     `mapstructure:"TRUSTED_PROXY_HOPS" validate:"gte=0"`
}

// KafkaConfig describes the ingestion consumers. Topics are keyed by consumer name.
type KafkaConfig struct {
	Enabled           bool   `mapstructure:"KAFKA_ENABLED"`
	Brokers           string `mapstructure:"KAFKA_BROKERS" validate:"required_if=Enabled true"`
	GroupID           string `mapstructure:"KAFKA_GROUP_ID" validate:"required"`
	SchemaRegistryURL string `mapstructure:"SCHEMA_REGISTRY_URL" validate:"required_if=Enabled true"`
	AutoOffsetReset   string `mapstructure:"KAFKA_AUTO_OFFSET_RESET" validate:"oneof=earliest latest"`

	RdfParseTopic         string `mapstructure:"KAFKA_TOPIC_RDF_PARSE" validate:"required"`
	ConceptTopic          string `mapstructure:"KAFKA_TOPIC_CONCEPT" validate:"required"`
	DatasetTopic          string `mapstructure:"KAFKA_TOPIC_DATASET" validate:"required"`
	DataServiceTopic      string `mapstructure:"KAFKA_TOPIC_DATA_SERVICE" validate:"required"`
	InformationModelTopic string `mapstructure:"KAFKA_TOPIC_INFORMATION_MODEL" validate:"required"`
	ServiceTopic          string `mapstructure:"KAFKA_TOPIC_SERVICE" validate:"required"`
	EventTopic            string `mapstructure:"KAFKA_TOPIC_EVENT" validate:"required"`
}

// BreakerConfig is shared by every per-consumer circuit breaker.
type BreakerConfig struct {
	FailureRateThreshold float64       `mapstructure:"CB_FAILURE_RATE_THRESHOLD" validate:"gt=0,lte=100"`
	MinimumCalls         uint32        `mapstructure:"CB_MINIMUM_CALLS" validate:"gte=1"`
	Window               time.Duration `mapstructure:"CB_WINDOW" validate:"required"`
	OpenTimeout          time.Duration `mapstructure:"CB_OPEN_TIMEOUT" validate:"required"`
	HalfOpenMaxCalls     uint32        `mapstructure:"CB_HALF_OPEN_MAX_CALLS" validate:"gte=1"`
	HealthCheckInterval  time.Duration `mapstructure:"CB_HEALTH_CHECK_INTERVAL" validate:"required"`
}

type UnionGraphConfig struct {
	ProcessorEnabled   bool          `mapstructure:"UNION_GRAPH_PROCESSOR_ENABLED"`
	InstanceID         string        `mapstructure:"UNION_GRAPH_INSTANCE_ID"`
	PollInterval       time.Duration `mapstructure:"UNION_GRAPH_POLL_INTERVAL" validate:"required"`
	LockTimeout        time.Duration `mapstructure:"UNION_GRAPH_LOCK_TIMEOUT" validate:"required"`
	StaleSweepInterval time.Duration `mapstructure:"UNION_GRAPH_STALE_SWEEP_INTERVAL" validate:"required"`
	TTLSweepInterval   time.Duration `mapstructure:"UNION_GRAPH_TTL_SWEEP_INTERVAL" validate:"required"`
	MaxConcurrent      int           `mapstructure:"UNION_GRAPH_MAX_CONCURRENT" validate:"gte=1,lte=64"`
	ResourceBatchSize  int           `mapstructure:"UNION_GRAPH_RESOURCE_BATCH_SIZE" validate:"gte=1,lte=1000"`
	ResetEnabled       bool          `mapstructure:"UNION_GRAPH_RESET_ENABLED"`
	DeleteEnabled      bool          `mapstructure:"UNION_GRAPH_DELETE_ENABLED"`
}

type WebhookConfig struct {
	Timeout  time.Duration `mapstructure:"WEBHOOK_TIMEOUT" validate:"required"`
	MaxRetry int           `mapstructure:"WEBHOOK_MAX_RETRY" validate:"gte=0,lte=50"`
	Async    bool          `mapstructure:"WEBHOOK_ASYNC"`
}

var (
	cfg      *Config
	validate = validator.New(validator.WithRequiredStructEnabled())
)

var defaults = map[string]any{
	"APP_ENV":                          "development",
	"HTTP_ADDR":                        "0.0.0.0:8080",
	"SHUTDOWN_TIMEOUT":                 "15s",
	"LOG_LEVEL":                        "info",
	"LOG_FORMAT":                       "json",
	"DB_MAX_OPEN_CONNS":                25,
	"DB_MAX_IDLE_CONNS":                25,
	"DB_CONN_MAX_LIFETIME":             "5m",
	"ASYNQ_CONCURRENCY":                10,
	"GOMAXPROCS":                       0,
	"RATE_LIMIT_RPS":                   10,
	"RATE_LIMIT_BURST":                 20,
	"TRUSTED_PROXY_HOPS":               0,
	"KAFKA_ENABLED":                    false,
	"KAFKA_GROUP_ID":                   "fdk-resource-service",
	"KAFKA_AUTO_OFFSET_RESET":          "earliest",
	"KAFKA_TOPIC_RDF_PARSE":            "rdf-parse-events",
	"KAFKA_TOPIC_CONCEPT":              "concept-events",
	"KAFKA_TOPIC_DATASET":              "dataset-events",
	"KAFKA_TOPIC_DATA_SERVICE":         "data-service-events",
	"KAFKA_TOPIC_INFORMATION_MODEL":    "information-model-events",
	"KAFKA_TOPIC_SERVICE":              "service-events",
	"KAFKA_TOPIC_EVENT":                "event-events",
	"CB_FAILURE_RATE_THRESHOLD":        50,
	"CB_MINIMUM_CALLS":                 100,
	"CB_WINDOW":                        "60s",
	"CB_OPEN_TIMEOUT":                  "60s",
	"CB_HALF_OPEN_MAX_CALLS":           10,
	"CB_HEALTH_CHECK_INTERVAL":         "5s",
	"UNION_GRAPH_PROCESSOR_ENABLED":    true,
	"UNION_GRAPH_POLL_INTERVAL":        "5s",
	"UNION_GRAPH_LOCK_TIMEOUT":         "60m",
	"UNION_GRAPH_STALE_SWEEP_INTERVAL": "10m",
	"UNION_GRAPH_TTL_SWEEP_INTERVAL":   "1h",
	"UNION_GRAPH_MAX_CONCURRENT":       2,
	"UNION_GRAPH_RESOURCE_BATCH_SIZE":  25,
	"UNION_GRAPH_RESET_ENABLED":        false,
	"UNION_GRAPH_DELETE_ENABLED":       false,
	"WEBHOOK_TIMEOUT":                  "10s",
	"WEBHOOK_MAX_RETRY":                5,
	"WEBHOOK_ASYNC":                    true,
}

var durationKeys = []string{
	"SHUTDOWN_TIMEOUT",
	"DB_CONN_MAX_LIFETIME",
	"CB_WINDOW",
	"CB_OPEN_TIMEOUT",
	"CB_HEALTH_CHECK_INTERVAL",
	"UNION_GRAPH_POLL_INTERVAL",
	"UNION_GRAPH_LOCK_TIMEOUT",
	"UNION_GRAPH_STALE_SWEEP_INTERVAL",
	"UNION_GRAPH_TTL_SWEEP_INTERVAL",
	"WEBHOOK_TIMEOUT",
}

// Load initializes configuration using Viper. It loads from .env if present,
// applies defaults, binds env vars, and validates the result.
func Load() (*Config, error) {
	// Load .env if present (non-fatal)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Optional config file
	_ = v.ReadInConfig()

	// Unmarshal only sees keys viper knows about, so bind the ones without defaults too.
	keys := []string{
		"DATABASE_URL",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"API_KEY",
		"KAFKA_BROKERS",
		"SCHEMA_REGISTRY_URL",
		"UNION_GRAPH_INSTANCE_ID",
	}
	for key := range defaults {
		keys = append(keys, key)
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}

	durations := map[string]*time.Duration{
		"SHUTDOWN_TIMEOUT":                 &c.ShutdownTimeout,
		"DB_CONN_MAX_LIFETIME":             &c.Database.ConnMaxLifetime,
		"CB_WINDOW":                        &c.Breaker.Window,
		"CB_OPEN_TIMEOUT":                  &c.Breaker.OpenTimeout,
		"CB_HEALTH_CHECK_INTERVAL":         &c.Breaker.HealthCheckInterval,
		"UNION_GRAPH_POLL_INTERVAL":        &c.UnionGraph.PollInterval,
		"UNION_GRAPH_LOCK_TIMEOUT":         &c.UnionGraph.LockTimeout,
		"UNION_GRAPH_STALE_SWEEP_INTERVAL": &c.UnionGraph.StaleSweepInterval,
		"UNION_GRAPH_TTL_SWEEP_INTERVAL":   &c.UnionGraph.TTLSweepInterval,
		"WEBHOOK_TIMEOUT":                  &c.Webhook.Timeout,
	}
	// Parse duration types that may come as string
	for _, key := range durationKeys {
		s := v.GetString(key)
		if s == "" {
			continue
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		*durations[key] = d
	}

	if c.UnionGraph.InstanceID == "" {
		c.UnionGraph.InstanceID = defaultInstanceID()
	}

	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if c.GoMaxProcs > 0 {
		runtime.GOMAXPROCS(c.GoMaxProcs)
	}

	cfg = &c
	return cfg, nil
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() *Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// Get returns the loaded configuration. Panics if not loaded.
func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call config.Load or config.MustLoad first")
	}
	return cfg
}

// Set installs c as the loaded configuration. Used by tests and tools that build a Config directly.
func Set(c *Config) { cfg = c }

// Topics returns the configured topic for each consumer name.
func (k KafkaConfig) Topics() map[string]string {
	return map[string]string{
		"rdfParseConsumer":         k.RdfParseTopic,
		"conceptConsumer":          k.ConceptTopic,
		"datasetConsumer":          k.DatasetTopic,
		"dataServiceConsumer":      k.DataServiceTopic,
		"informationModelConsumer": k.InformationModelTopic,
		"serviceConsumer":          k.ServiceTopic,
		"eventConsumer":            k.EventTopic,
	}
}

// BrokerList splits the comma separated KAFKA_BROKERS value.
func (k KafkaConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func defaultInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "instance"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
