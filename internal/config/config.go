package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config конфигурация команд serve и migrate
type Config struct {
	HTTPAddr        string
	Store           string
	DatabaseURL     string
	DBMaxConns      int
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CartCacheTTL    time.Duration
	KafkaBrokers    []string
	KafkaTopic      string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	NotifyTimeout   time.Duration
	LogLevel        string
	OTLPEndpoint    string
	SeedFile        string
}

// Flags возвращает флаги командной строки. Каждый флаг можно задать
// и через переменную окружения.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "http-addr", Value: ":9091", Usage: "listen address", EnvVars: []string{"HTTP_ADDR"}},
		&cli.StringFlag{Name: "store", Value: StoreMemory, Usage: "storage backend: memory or postgres", EnvVars: []string{"STORE"}},
		&cli.StringFlag{Name: "database-url", Usage: "postgres connection url", EnvVars: []string{"DATABASE_URL"}},
		&cli.IntFlag{Name: "db-max-conns", Value: 10, Usage: "postgres pool size", EnvVars: []string{"DB_MAX_CONNS"}},
		&cli.StringFlag{Name: "redis-addr", Usage: "redis address for the cart cache, empty disables it", EnvVars: []string{"REDIS_ADDR"}},
		&cli.StringFlag{Name: "redis-password", EnvVars: []string{"REDIS_PASSWORD"}},
		&cli.IntFlag{Name: "redis-db", EnvVars: []string{"REDIS_DB"}},
		&cli.DurationFlag{Name: "cart-cache-ttl", Value: 15 * time.Minute, EnvVars: []string{"CART_CACHE_TTL"}},
		&cli.StringSliceFlag{Name: "kafka-brokers", Usage: "brokers for order events, empty disables publishing", EnvVars: []string{"KAFKA_BROKERS"}},
		&cli.StringFlag{Name: "kafka-topic", Value: "orders.created", EnvVars: []string{"KAFKA_TOPIC"}},
		&cli.DurationFlag{Name: "request-timeout", Value: 10 * time.Second, EnvVars: []string{"REQUEST_TIMEOUT"}},
		&cli.DurationFlag{Name: "shutdown-timeout", Value: 5 * time.Second, EnvVars: []string{"SHUTDOWN_TIMEOUT"}},
		&cli.DurationFlag{Name: "notify-timeout", Value: 3 * time.Second, Usage: "per receiver deadline for order notifications", EnvVars: []string{"NOTIFY_TIMEOUT"}},
		&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"LOG_LEVEL"}},
		&cli.StringFlag{Name: "otlp-endpoint", Usage: "OTLP gRPC endpoint, empty disables tracing export", EnvVars: []string{"OTEL_EXPORTER_OTLP_ENDPOINT"}},
		&cli.StringFlag{Name: "seed-file", Usage: "YAML file with collections, products and customers to load at startup", EnvVars: []string{"SEED_FILE"}},
	}
}

// FromCLI читает флаги, зарегистрированные в Flags
func FromCLI(c *cli.Context) Config {
	brokers := make([]string, 0)
	for _, b := range c.StringSlice("kafka-brokers") {
		// also accept one comma separated value
		for _, part := range strings.Split(b, ",") {
			if part = strings.TrimSpace(part); part != "" {
				brokers = append(brokers, part)
			}
		}
	}
	return Config{
		HTTPAddr:        c.String("http-addr"),
		Store:           c.String("store"),
		DatabaseURL:     c.String("database-url"),
		DBMaxConns:      c.Int("db-max-conns"),
		RedisAddr:       c.String("redis-addr"),
		RedisPassword:   c.String("redis-password"),
		RedisDB:         c.Int("redis-db"),
		CartCacheTTL:    c.Duration("cart-cache-ttl"),
		KafkaBrokers:    brokers,
		KafkaTopic:      c.String("kafka-topic"),
		RequestTimeout:  c.Duration("request-timeout"),
		ShutdownTimeout: c.Duration("shutdown-timeout"),
		NotifyTimeout:   c.Duration("notify-timeout"),
		LogLevel:        c.String("log-level"),
		OTLPEndpoint:    c.String("otlp-endpoint"),
		SeedFile:        c.String("seed-file"),
	}
}

// Validate отклоняет несовместимые настройки
func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http-addr is required"))
	}
	switch c.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("database-url is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	if c.DBMaxConns < 0 {
		errs = append(errs, errors.New("db-max-conns must not be negative"))
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		errs = append(errs, errors.New("kafka-topic is required when brokers are set"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request-timeout must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown-timeout must be positive"))
	}
	if c.CartCacheTTL < 0 || c.NotifyTimeout < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log-level: %w", err))
	}
	return errors.Join(errs...)
}

// RequireDatabase проверка для команды migrate
func (c Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("database-url is required")
	}
	return nil
}
