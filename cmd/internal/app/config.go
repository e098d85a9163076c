package app

import (
	"fmt"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreBadger   = "badger"
	StoreDynamoDB = "dynamodb"
)

// Service descriptor sources.
const (
	SourceEnv      = "env"
	SourceFile     = "file"
	SourceDynamoDB = "dynamodb"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int

	ServiceName   string
	ServiceSource string
	ServiceFile   string

	Store string

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	DBSchema    string

	BadgerDir string

	AWSRegion       string
	AWSProfile      string
	DynamoEndpoint  string
	ServicesTable   string
	IdentitiesTable string

	// If true, /readyz returns 503 unless the credential store answers a ping.
	ReadinessRequireStore bool

	// If true, startup fails unless the token secret is at least 32 bytes
	// and a password pepper is configured.
	RequireStrongSecrets bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("EBAUTH_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("EBAUTH_LOG_LEVEL", "info"),
		LogFormat: EnvString("EBAUTH_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("EBAUTH_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("EBAUTH_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("EBAUTH_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("EBAUTH_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   EnvDuration("EBAUTH_HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),

		MaxHeaderBytes: EnvInt("EBAUTH_HTTP_MAX_HEADER_BYTES", 1<<20),

		ServiceName:   EnvString("EBAUTH_SERVICE_NAME", ""),
		ServiceSource: strings.ToLower(EnvString("EBAUTH_SERVICE_SOURCE", SourceEnv)),
		ServiceFile:   EnvString("EBAUTH_SERVICE_FILE", "services.yaml"),

		Store: strings.ToLower(EnvString("EBAUTH_STORE", StoreMemory)),

		DatabaseURL: EnvString("EBAUTH_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("EBAUTH_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("EBAUTH_DB_MIN_CONNS", 0),
		DBSchema:    EnvString("EBAUTH_DB_SCHEMA", "ebauth"),

		BadgerDir: EnvString("EBAUTH_BADGER_DIR", "./data/identities"),

		AWSRegion:       EnvString("AWS_REGION", ""),
		AWSProfile:      EnvString("AWS_PROFILE", ""),
		DynamoEndpoint:  EnvString("EBAUTH_DYNAMODB_ENDPOINT", ""),
		ServicesTable:   EnvString("EBAUTH_DYNAMODB_SERVICES_TABLE", "services"),
		IdentitiesTable: EnvString("EBAUTH_DYNAMODB_IDENTITIES_TABLE", "identities"),

		ReadinessRequireStore: EnvBool("EBAUTH_READINESS_REQUIRE_STORE", false),
		RequireStrongSecrets:  EnvBool("EBAUTH_REQUIRE_STRONG_SECRETS", false),
	}
}

// Validate rejects unknown backend and source names before anything is opened.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreBadger, StoreDynamoDB:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: EBAUTH_STORE=postgres requires EBAUTH_DATABASE_URL")
		}
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}

	switch c.ServiceSource {
	case SourceEnv, SourceDynamoDB:
	case SourceFile:
		if c.ServiceFile == "" {
			return fmt.Errorf("config: EBAUTH_SERVICE_SOURCE=file requires EBAUTH_SERVICE_FILE")
		}
	default:
		return fmt.Errorf("config: unknown service source %q", c.ServiceSource)
	}
	return nil
}

func (c Config) usesDynamoDB() bool {
	return c.Store == StoreDynamoDB || c.ServiceSource == SourceDynamoDB
}
