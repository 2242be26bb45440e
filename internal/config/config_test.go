package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 24, cfg.Policy().AppealHours)
	assert.Equal(t, 72, cfg.Policy().PlatformHours)
	assert.Equal(t, int64(25), cfg.PricingConfig().PlatformFeePercent)
	assert.Equal(t, "BRL", cfg.PricingConfig().Currency)
	assert.Equal(t, time.Minute, cfg.Worker.SweepInterval)
	assert.Equal(t, "log", cfg.Broker.Driver)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_ENV", "production")
	t.Setenv("BOOKING_APPEAL_HOURS", "48")
	t.Setenv("WORKER_SWEEP_INTERVAL", "30s")
	t.Setenv("BROKER_DRIVER", "kafka")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr())
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 48*time.Hour, cfg.Policy().AppealWindow())
	assert.Equal(t, 30*time.Second, cfg.Worker.SweepInterval)
	assert.Equal(t, "kafka", cfg.Broker.Driver)
}

func TestLoadRejectsBadFee(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PRICING_PLATFORM_FEE_PERCENT", "100")

	_, err := Load()
	assert.ErrorContains(t, err, "platform_fee_percent")
}

func TestLoadRequiresWebhookSecretForMercadoPago(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PAYMENT_PROVIDER", "mercadopago")
	t.Setenv("PAYMENT_ACCESS_TOKEN", "TEST-token")

	_, err := Load()
	assert.ErrorContains(t, err, "webhook_secret")

	t.Setenv("PAYMENT_WEBHOOK_SECRET", "whsec")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "whsec", cfg.Payment.WebhookSecret)
}
