package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/motorhub/motorhub/internal/testing/guard"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.NotifyDispatchTimeout)
	assert.Equal(t, 10, cfg.NotifyMaxRetry)
	assert.Equal(t, "notifications", cfg.NotifyQueue)
	assert.Equal(t, "*/5 * * * *", cfg.BookingExpiryCron)
	assert.Equal(t, 200, cfg.BookingExpiryBatch)
	assert.Equal(t, 720*time.Hour, cfg.IdempotencyRetention)
	assert.Equal(t, 5, cfg.WorkerConcurrency)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("NOTIFY_DISPATCH_TIMEOUT", "500ms")
	t.Setenv("BOOKING_EXPIRY_BATCH", "50")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 500*time.Millisecond, cfg.NotifyDispatchTimeout)
	assert.Equal(t, 50, cfg.BookingExpiryBatch)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("NOTIFY_DISPATCH_TIMEOUT", "0s")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("NOTIFY_DISPATCH_TIMEOUT", "2s")
	t.Setenv("WORKER_CONCURRENCY", "0")
	_, err = LoadConfig()
	require.Error(t, err)

	t.Setenv("WORKER_CONCURRENCY", "not-a-number")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestInTestMode(t *testing.T) {
	t.Setenv("MOTORHUB_TEST_MODE", "1")
	assert.True(t, InTestMode())

	t.Setenv("MOTORHUB_TEST_MODE", "0")
	assert.False(t, InTestMode())

	t.Setenv("MOTORHUB_TEST_MODE", "maybe")
	assert.False(t, InTestMode())
}
