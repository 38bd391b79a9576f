package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_YAMLWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: test
database:
  dsn: postgres://u:p@localhost:5432/store
gateway:
  key_secret: key
  webhook_secret: hook
kafka:
  brokers: ["kafka:9092"]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "postgres://u:p@localhost:5432/store", cfg.Database.DSN)
	assert.Equal(t, "key", cfg.Gateway.KeySecret)
	assert.Equal(t, "hook", cfg.Gateway.WebhookSecret)
	assert.Equal(t, "X-Razorpay-Signature", cfg.Gateway.SignatureHeader)
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, uint64(3), cfg.Reconcile.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Reconcile.InitialBackoff)
	assert.Equal(t, 24*time.Hour, cfg.Worker.PendingTTL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  dsn: from-file\n"), 0o600))
	t.Setenv("DATABASE_DSN", "from-env")
	t.Setenv("RECONCILE_MAX_RETRIES", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Database.DSN)
	assert.Equal(t, uint64(7), cfg.Reconcile.MaxRetries)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestGatewayValidate(t *testing.T) {
	tests := []struct {
		name    string
		gateway Gateway
		wantErr string
	}{
		{name: "both set", gateway: Gateway{KeySecret: "key", WebhookSecret: "hook"}},
		{name: "missing key secret", gateway: Gateway{WebhookSecret: "hook"}, wantErr: "RAZORPAY_KEY_SECRET"},
		{name: "missing webhook secret", gateway: Gateway{KeySecret: "key"}, wantErr: "RAZORPAY_WEBHOOK_SECRET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.gateway.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoad_SecretsFromEnvPassValidation(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://localhost/store")
	t.Setenv("RAZORPAY_KEY_SECRET", "key")
	t.Setenv("RAZORPAY_WEBHOOK_SECRET", "hook")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.NoError(t, cfg.Gateway.Validate())
}
