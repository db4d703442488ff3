package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, 5*time.Second, cfg.Database.TxTimeout)
		assert.Equal(t, "@every 15m", cfg.Reconcile.Schedule)
		assert.Empty(t, cfg.Kafka.Brokers)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("REVALIDATION_ADDR", ":9090")
		t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
		t.Setenv("EVIDENCE_TIMEOUT", "250ms")
		t.Setenv("LOG_FORMAT", "TEXT")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Server.Addr)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 250*time.Millisecond, cfg.Evidence.Timeout)
		assert.Equal(t, "text", cfg.Log.Format)
	})

	t.Run("invalid duration", func(t *testing.T) {
		t.Setenv("SNAPSHOT_TIMEOUT", "soon")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "SNAPSHOT_TIMEOUT")
	})

	t.Run("invalid batch size", func(t *testing.T) {
		t.Setenv("OUTBOX_BATCH_SIZE", "0")
		_, err := FromEnv()
		assert.Error(t, err)
	})
}
