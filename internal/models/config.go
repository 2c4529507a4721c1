package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Ledger   LedgerConfig
	Relay    RelayConfig
	NATS     NATSConfig
	Formance FormanceConfig
	Log      LogConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver           string // "sqlite" or "postgres"
	Path             string
	URL              string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	BusyTimeout      time.Duration
	CreateDummyUsers bool
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

// AuthConfig holds identity-provider token verification settings
type AuthConfig struct {
	JWTSecret   string
	Audience    string
	Issuer      string
	AdminRole   string
	ServiceRole string
}

// LedgerConfig holds balance mutation settings
type LedgerConfig struct {
	DebitPolicy DebitPolicy
	MaxRetries  int
	AssetsFile  string
}

// RelayConfig holds notification outbox relay settings
type RelayConfig struct {
	Enabled         bool
	PollingInterval time.Duration
	CleanupInterval time.Duration
	BatchSize       int
	MaxAttempts     int
}

// NATSConfig holds messaging settings; an empty URL disables the sink
type NATSConfig struct {
	URL           string
	Stream        string
	SubjectPrefix string
}

// FormanceConfig holds ledger mirror settings; an empty StackURL disables the sink
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}
