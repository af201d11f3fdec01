package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("GATEWAY_TIMEOUT", "")
	cfg := Load()
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, 4, cfg.SweepConcurrency)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("GATEWAY_TIMEOUT", "3")
	t.Setenv("SWEEP_INTERVAL", "1m")
	t.Setenv("SWEEP_CONCURRENCY", "nope")
	t.Setenv("PUBLIC_BASE_URL", "https://shop.example.com/")

	cfg := Load()
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, 4, cfg.SweepConcurrency)
	assert.Equal(t, "https://shop.example.com", cfg.PublicBaseURL)
}
