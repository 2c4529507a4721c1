/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"ledger-admin-go/internal/models"

	"github.com/joho/godotenv"
)

// Load reads configuration from the environment. Values in a .env file in the
// working directory are applied first without overriding variables that are
// already set.
func Load() (*models.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment only
func FromEnv() (*models.Config, error) {
	d := durations{}

	cfg := &models.Config{
		Database: models.DatabaseConfig{
			Driver:           strings.ToLower(getEnvString("DATABASE_DRIVER", "sqlite")),
			Path:             getEnvString("DATABASE_PATH", "ledger.db"),
			URL:              getEnvString("DATABASE_URL", ""),
			MaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  d.get("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime:  d.get("DB_CONN_MAX_IDLE_TIME", 30*time.Second),
			PingTimeout:      d.get("DB_PING_TIMEOUT", 5*time.Second),
			BusyTimeout:      d.get("DB_BUSY_TIMEOUT", 5*time.Second),
			CreateDummyUsers: getEnvBool("CREATE_DUMMY_USERS", false),
		},
		Server: models.ServerConfig{
			Addr:            getEnvString("SERVER_ADDR", ":8080"),
			ReadTimeout:     d.get("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    d.get("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: d.get("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSOrigins:     getEnvList("CORS_ALLOWED_ORIGINS"),
		},
		Auth: models.AuthConfig{
			JWTSecret:   getEnvString("AUTH_JWT_SECRET", ""),
			Audience:    getEnvString("AUTH_AUDIENCE", ""),
			Issuer:      getEnvString("AUTH_ISSUER", ""),
			AdminRole:   getEnvString("AUTH_ADMIN_ROLE", string(models.RoleAdmin)),
			ServiceRole: getEnvString("AUTH_SERVICE_ROLE", string(models.RoleService)),
		},
		Ledger: models.LedgerConfig{
			DebitPolicy: models.DebitPolicy(strings.ToLower(getEnvString("LEDGER_DEBIT_POLICY", string(models.DebitClamp)))),
			MaxRetries:  getEnvInt("LEDGER_MAX_RETRIES", 5),
			AssetsFile:  getEnvString("ASSETS_FILE", "assets.yaml"),
		},
		Relay: models.RelayConfig{
			Enabled:         getEnvBool("RELAY_ENABLED", true),
			PollingInterval: d.get("RELAY_POLLING_INTERVAL", 5*time.Second),
			CleanupInterval: d.get("RELAY_CLEANUP_INTERVAL", 10*time.Minute),
			BatchSize:       getEnvInt("RELAY_BATCH_SIZE", 100),
			MaxAttempts:     getEnvInt("RELAY_MAX_ATTEMPTS", 5),
		},
		NATS: models.NATSConfig{
			URL:           getEnvString("NATS_URL", ""),
			Stream:        getEnvString("NATS_STREAM", "LEDGER_NOTIFICATIONS"),
			SubjectPrefix: getEnvString("NATS_SUBJECT_PREFIX", "ledger.notifications"),
		},
		Formance: models.FormanceConfig{
			StackURL:     getEnvString("FORMANCE_STACK_URL", ""),
			ClientID:     getEnvString("FORMANCE_CLIENT_ID", ""),
			ClientSecret: getEnvString("FORMANCE_CLIENT_SECRET", ""),
			LedgerName:   getEnvString("FORMANCE_LEDGER", "ledger-admin"),
		},
		Log: models.LogConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			File:       getEnvString("LOG_FILE", ""),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
	}

	if d.err != nil {
		return nil, d.err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *models.Config) error {
	switch cfg.Database.Driver {
	case "sqlite":
	case "postgres":
		if cfg.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when DATABASE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.Database.Driver)
	}
	if !cfg.Ledger.DebitPolicy.Valid() {
		return fmt.Errorf("invalid LEDGER_DEBIT_POLICY %q", cfg.Ledger.DebitPolicy)
	}
	return nil
}

// durations collects the first parse error so Load can report it once
type durations struct {
	err error
}

func (d *durations) get(key string, defaultValue time.Duration) time.Duration {
	value, err := getEnvDuration(key, defaultValue)
	if err != nil && d.err == nil {
		d.err = err
	}
	return value
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
