package main

import (
	"context"
	"path/filepath"
	"testing"

	"ledger-admin-go/internal/config"
	"ledger-admin-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *models.Config {
	t.Helper()
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "server.db"))
	t.Setenv("SERVER_ADDR", "127.0.0.1:0")
	t.Setenv("AUTH_JWT_SECRET", "test_secret")
	t.Setenv("ASSETS_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := config.FromEnv()
	require.NoError(t, err)
	return cfg
}

func TestRunStopsWhenContextIsDone(t *testing.T) {
	cfg := testConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, run(ctx, cfg))
}

func TestRunReturnsSetupErrors(t *testing.T) {
	t.Run("missing jwt secret", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Auth.JWTSecret = ""

		err := run(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token verification")
	})

	t.Run("incomplete formance config", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Relay.Enabled = true
		cfg.Formance.StackURL = "http://localhost:1"

		err := run(context.Background(), cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "notification sinks")
	})
}
