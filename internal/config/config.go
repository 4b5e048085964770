package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ServiceName    = "catalog-orders"
	ServiceVersion = "0.1.0"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	MySQLDSN          string
	MySQLMaxOpenConns int
	MySQLMaxIdleConns int
	ApplySchema       bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// UseRedisCache turns the read-through cache on. With it off every read
	// goes to MySQL and invalidation is skipped.
	UseRedisCache bool
	WarmListCache bool

	KafkaBrokers []string
	KafkaTopic   string

	OtelEndpoint string

	// Location decides what "today" means for coupon windows and shipping dates.
	Location *time.Location
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:      getEnv("GRPC_ADDR", ":50051"),
		MySQLDSN:      getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/shop"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "orders"),
		OtelEndpoint:  os.Getenv("OTEL_ENDPOINT"),
	}

	var err error
	if cfg.MySQLMaxOpenConns, err = getInt("MYSQL_MAX_OPEN_CONNS", 50); err != nil {
		return nil, err
	}
	if cfg.MySQLMaxIdleConns, err = getInt("MYSQL_MAX_IDLE_CONNS", 25); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.UseRedisCache, err = getBool("USE_REDIS_CACHE", true); err != nil {
		return nil, err
	}
	if cfg.WarmListCache, err = getBool("WARM_LIST_CACHE", false); err != nil {
		return nil, err
	}
	if cfg.ApplySchema, err = getBool("APPLY_SCHEMA", false); err != nil {
		return nil, err
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	cfg.Location, err = time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MySQLDSN == "" {
		return fmt.Errorf("MYSQL_DSN environment variable is required")
	}
	if c.MySQLMaxOpenConns <= 0 {
		return fmt.Errorf("MYSQL_MAX_OPEN_CONNS must be positive, got %d", c.MySQLMaxOpenConns)
	}
	if c.MySQLMaxIdleConns < 0 || c.MySQLMaxIdleConns > c.MySQLMaxOpenConns {
		return fmt.Errorf("MYSQL_MAX_IDLE_CONNS must be between 0 and %d, got %d", c.MySQLMaxOpenConns, c.MySQLMaxIdleConns)
	}
	if c.UseRedisCache && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when USE_REDIS_CACHE is on")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
