package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Kafka       KafkaConfig
	Redis       RedisConfig
	Fulfillment FulfillmentConfig
	Tracing     TracingConfig
	Sweeper     SweeperConfig
	RateLimit   RateLimitConfig

	// StorageDriver is "mysql" or "memory".
	StorageDriver string
	AdminAPIKey   string
	LogLevel      string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// DSN builds a go-sql-driver/mysql connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

type KafkaConfig struct {
	Brokers          []string
	GroupID          string
	MockMode         bool
	CheckoutTopic    string
	OrderTopicPrefix string
}

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	SecretTTL time.Duration
}

type FulfillmentConfig struct {
	FunctionsURL string
	ServiceKey   string
	Timeout      time.Duration
}

type TracingConfig struct {
	ServiceName    string
	JaegerEndpoint string
}

type SweeperConfig struct {
	Enabled    bool
	Interval   time.Duration
	StaleAfter time.Duration
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// WebhookResponseHeadroom is the time reserved after a timed-out dispatch for the
// pending_manual write and the response.
const WebhookResponseHeadroom = 5 * time.Second

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", ":8085"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "3306"),
			Username:     getEnv("DB_USER", "root"),
			Password:     getEnv("DB_PASS", "password"),
			Database:     getEnv("DB_NAME", "topup_gateway"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:          getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:29092"}),
			GroupID:          getEnv("KAFKA_GROUP_ID", "topup-gateway"),
			MockMode:         getEnvAsBool("KAFKA_MOCK", false),
			CheckoutTopic:    getEnv("KAFKA_CHECKOUT_TOPIC", "topup.checkout.orders"),
			OrderTopicPrefix: getEnv("KAFKA_ORDER_TOPIC_PREFIX", "topup.order"),
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			SecretTTL: getEnvAsDuration("GATEWAY_SECRET_TTL", 30*time.Second),
		},
		Fulfillment: FulfillmentConfig{
			FunctionsURL: strings.TrimRight(getEnv("FUNCTIONS_URL", ""), "/"),
			ServiceKey:   getEnv("FUNCTIONS_SERVICE_KEY", ""),
			Timeout:      getEnvAsDuration("FULFILLMENT_TIMEOUT", 10*time.Second),
		},
		Tracing: TracingConfig{
			ServiceName:    getEnv("TRACING_SERVICE_NAME", "topup-gateway"),
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
		},
		Sweeper: SweeperConfig{
			Enabled:    getEnvAsBool("SWEEPER_ENABLED", true),
			Interval:   getEnvAsDuration("SWEEPER_INTERVAL", time.Minute),
			StaleAfter: getEnvAsDuration("SWEEPER_STALE_AFTER", 15*time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 100),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 100),
		},
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", "mysql")),
		AdminAPIKey:   getEnv("ADMIN_API_KEY", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports configuration that would leave the service unable to do its job.
func (c *Config) Validate() error {
	var errs []error

	if c.StorageDriver != "mysql" && c.StorageDriver != "memory" {
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be mysql or memory, got %q", c.StorageDriver))
	}
	if c.Fulfillment.FunctionsURL == "" {
		errs = append(errs, errors.New("FUNCTIONS_URL is required to dispatch fulfillment"))
	}
	if c.Fulfillment.Timeout <= 0 {
		errs = append(errs, errors.New("FULFILLMENT_TIMEOUT must be positive"))
	}
	// The webhook answers only after dispatch returns, so the response must still fit
	// in the write deadline when process-topup runs into its timeout.
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout < c.Fulfillment.Timeout+WebhookResponseHeadroom {
		errs = append(errs, fmt.Errorf("SERVER_WRITE_TIMEOUT (%s) must be at least FULFILLMENT_TIMEOUT (%s) plus %s",
			c.Server.WriteTimeout, c.Fulfillment.Timeout, WebhookResponseHeadroom))
	}
	if !c.Kafka.MockMode && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required unless KAFKA_MOCK=true"))
	}
	if c.Sweeper.Enabled && (c.Sweeper.Interval <= 0 || c.Sweeper.StaleAfter <= 0) {
		errs = append(errs, errors.New("SWEEPER_INTERVAL and SWEEPER_STALE_AFTER must be positive"))
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive"))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
