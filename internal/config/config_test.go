package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func parse(t *testing.T, env map[string]string, args ...string) Config {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	var got Config
	app := &cli.App{
		Flags: Flags(),
		Action: func(c *cli.Context) error {
			got = FromCLI(c)
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"storefront"}, args...)))
	return got
}

func TestDefaults(t *testing.T) {
	cfg := parse(t, nil)
	assert.Equal(t, ":9091", cfg.HTTPAddr)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.NoError(t, cfg.Validate())
}

func TestEnvAndFlags(t *testing.T) {
	cfg := parse(t, map[string]string{
		"STORE":         "postgres",
		"DATABASE_URL":  "postgres://u:p@db/shop",
		"KAFKA_BROKERS": "k1:9092, k2:9092",
		"LOG_LEVEL":     "debug",
	}, "--http-addr", ":8080", "--request-timeout", "2s")

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := parse(t, nil)

	cfg := base
	cfg.Store = StorePostgres
	assert.ErrorContains(t, cfg.Validate(), "database-url")

	cfg = base
	cfg.Store = "sqlite"
	assert.ErrorContains(t, cfg.Validate(), "unknown store")

	cfg = base
	cfg.KafkaBrokers = []string{"k:9092"}
	cfg.KafkaTopic = ""
	assert.ErrorContains(t, cfg.Validate(), "kafka-topic")

	cfg = base
	cfg.RequestTimeout = 0
	cfg.LogLevel = "chatty"
	err := cfg.Validate()
	assert.ErrorContains(t, err, "request-timeout")
	assert.ErrorContains(t, err, "log-level")

	assert.Error(t, base.RequireDatabase())
}
