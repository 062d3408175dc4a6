package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, time.Hour, cfg.Duty.OverlapWindow)
	assert.Equal(t, OverlapSymmetric, cfg.Duty.OverlapMode)
	assert.Equal(t, 5*time.Second, cfg.TxTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PARISH_DUTY_OVERLAP_WINDOW", "90m")
	t.Setenv("PARISH_DUTY_OVERLAP_MODE", "legacy")
	t.Setenv("PARISH_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PARISH_DATABASE_DRIVER", "pgx")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, cfg.Duty.OverlapWindow)
	assert.Equal(t, OverlapLegacy, cfg.Duty.OverlapMode)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "pgx", cfg.Database.Driver)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]string{
		"PARISH_DUTY_OVERLAP_MODE":   "sideways",
		"PARISH_DUTY_OVERLAP_WINDOW": "0s",
		"PARISH_TX_TIMEOUT":          "-1s",
		"PARISH_DATABASE_DRIVER":     "mysql",
		"PARISH_TIMEZONE":            "Mars/Olympus",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestValidate_ProductionNeedsSigningKey(t *testing.T) {
	t.Setenv("PARISH_ENV", "production")
	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SIGNING_KEY")

	t.Setenv("PARISH_JWT_SIGNING_KEY", "a-real-key")
	_, err = FromEnv()
	assert.NoError(t, err)
}
