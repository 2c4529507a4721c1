package config

import (
	"testing"
	"time"

	"ledger-admin-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, models.DebitClamp, cfg.Ledger.DebitPolicy)
	assert.Equal(t, 5*time.Second, cfg.Relay.PollingInterval)
	assert.Equal(t, "ledger.notifications", cfg.NATS.SubjectPrefix)
	assert.Empty(t, cfg.Server.CORSOrigins)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")
	t.Setenv("LEDGER_DEBIT_POLICY", "STRICT")
	t.Setenv("RELAY_POLLING_INTERVAL", "250ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://admin.example.com, ,https://app.example.com")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, models.DebitStrict, cfg.Ledger.DebitPolicy)
	assert.Equal(t, 250*time.Millisecond, cfg.Relay.PollingInterval)
	assert.Equal(t, []string{"https://admin.example.com", "https://app.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns, "invalid ints fall back to the default")
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad duration", "SERVER_READ_TIMEOUT", "fast"},
		{"bad policy", "LEDGER_DEBIT_POLICY", "lenient"},
		{"bad driver", "DATABASE_DRIVER", "mysql"},
		{"postgres without url", "DATABASE_DRIVER", "postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
