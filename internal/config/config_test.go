package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"HTTP_ADDR", "GRPC_ADDR", "MYSQL_DSN", "MYSQL_MAX_OPEN_CONNS", "MYSQL_MAX_IDLE_CONNS",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "USE_REDIS_CACHE", "WARM_LIST_CACHE",
		"KAFKA_BROKERS", "KAFKA_TOPIC", "OTEL_ENDPOINT", "TIMEZONE", "APPLY_SCHEMA",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Equal(t, 50, cfg.MySQLMaxOpenConns)
	assert.True(t, cfg.UseRedisCache)
	assert.False(t, cfg.WarmListCache)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "UTC", cfg.Location.String())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("USE_REDIS_CACHE", "false")
	t.Setenv("WARM_LIST_CACHE", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("TIMEZONE", "Asia/Ho_Chi_Minh")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.UseRedisCache)
	assert.True(t, cfg.WarmListCache)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Location.String())
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad int", "MYSQL_MAX_OPEN_CONNS", "many"},
		{"zero pool", "MYSQL_MAX_OPEN_CONNS", "0"},
		{"bad bool", "USE_REDIS_CACHE", "sometimes"},
		{"unknown zone", "TIMEZONE", "Mars/Olympus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
