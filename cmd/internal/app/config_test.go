package app

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{
		"EBAUTH_HTTP_ADDR", "EBAUTH_STORE", "EBAUTH_SERVICE_SOURCE", "EBAUTH_HTTP_READ_TIMEOUT",
		"EBAUTH_DYNAMODB_SERVICES_TABLE", "EBAUTH_DYNAMODB_IDENTITIES_TABLE", "EBAUTH_DB_SCHEMA",
	} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()
	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.Store != StoreMemory || cfg.ServiceSource != SourceEnv {
		t.Fatalf("store=%q source=%q", cfg.Store, cfg.ServiceSource)
	}
	if cfg.ReadTimeout != 15*time.Second {
		t.Fatalf("ReadTimeout=%s", cfg.ReadTimeout)
	}
	if cfg.ServicesTable != "services" || cfg.IdentitiesTable != "identities" || cfg.DBSchema != "ebauth" {
		t.Fatalf("unexpected names: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("EBAUTH_STORE", "DynamoDB")
	t.Setenv("EBAUTH_SERVICE_SOURCE", "dynamodb")
	t.Setenv("EBAUTH_DB_MAX_CONNS", "-3")
	t.Setenv("EBAUTH_HTTP_IDLE_TIMEOUT", "2m")

	cfg := LoadConfig()
	if cfg.Store != StoreDynamoDB || !cfg.usesDynamoDB() {
		t.Fatalf("store=%q", cfg.Store)
	}
	if cfg.DBMaxConns != 10 {
		t.Fatalf("negative conns should fall back, got %d", cfg.DBMaxConns)
	}
	if cfg.IdleTimeout != 2*time.Minute {
		t.Fatalf("IdleTimeout=%s", cfg.IdleTimeout)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"memory env", Config{Store: StoreMemory, ServiceSource: SourceEnv}, true},
		{"postgres without url", Config{Store: StorePostgres, ServiceSource: SourceEnv}, false},
		{"postgres with url", Config{Store: StorePostgres, DatabaseURL: "postgres://x", ServiceSource: SourceEnv}, true},
		{"unknown store", Config{Store: "redis", ServiceSource: SourceEnv}, false},
		{"file without path", Config{Store: StoreMemory, ServiceSource: SourceFile}, false},
		{"unknown source", Config{Store: StoreMemory, ServiceSource: "consul"}, false},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if (err == nil) != tc.ok {
			t.Fatalf("%s: err=%v", tc.name, err)
		}
	}
}
