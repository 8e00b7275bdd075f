package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("DefaultValues", func(t *testing.T) {
		os.Clearenv()
		cfg, err := Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Port != "8080" {
			t.Errorf("expected port 8080, got %s", cfg.Port)
		}
		if cfg.TokenTTL != 24*time.Hour {
			t.Errorf("expected token ttl 24h, got %s", cfg.TokenTTL)
		}
		if cfg.TokenSecret == "" {
			t.Error("expected dev fallback token secret")
		}
		if cfg.OTelExporter != "none" {
			t.Errorf("expected otel exporter none, got %s", cfg.OTelExporter)
		}
		if len(cfg.CORSAllowedOrigins) != 2 {
			t.Errorf("expected 2 default origins, got %v", cfg.CORSAllowedOrigins)
		}
	})

	t.Run("ProductionValidation", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("APP_ENV", "prod")
		_, err := Load()
		if err == nil {
			t.Error("expected error when TOKEN_SECRET is missing in production")
		}
	})

	t.Run("ProductionShortSecret", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("APP_ENV", "prod")
		os.Setenv("TOKEN_SECRET", "short")
		_, err := Load()
		if err == nil {
			t.Error("expected error for a short TOKEN_SECRET in production")
		}
	})

	t.Run("ProductionValid", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("APP_ENV", "prod")
		os.Setenv("TOKEN_SECRET", strings.Repeat("s", 32))
		cfg, err := Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Env != "prod" {
			t.Errorf("expected env prod, got %s", cfg.Env)
		}
	})

	t.Run("CustomValues", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("PORT", "9000")
		os.Setenv("TOKEN_TTL", "90m")
		os.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
		os.Setenv("OTEL_EXPORTER", "STDOUT")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Port != "9000" {
			t.Errorf("expected port 9000, got %s", cfg.Port)
		}
		if cfg.TokenTTL != 90*time.Minute {
			t.Errorf("expected ttl 90m, got %s", cfg.TokenTTL)
		}
		if got := strings.Join(cfg.CORSAllowedOrigins, "|"); got != "https://a.example|https://b.example" {
			t.Errorf("unexpected origins: %s", got)
		}
		if cfg.OTelExporter != "stdout" {
			t.Errorf("expected stdout exporter, got %s", cfg.OTelExporter)
		}
	})

	t.Run("InvalidValues", func(t *testing.T) {
		cases := map[string]string{
			"TOKEN_TTL":        "forever",
			"MAX_UPLOAD_BYTES": "-1",
			"OTEL_EXPORTER":    "zipkin",
		}
		for key, value := range cases {
			t.Run(key, func(t *testing.T) {
				os.Clearenv()
				os.Setenv(key, value)
				if _, err := Load(); err == nil {
					t.Errorf("expected error for %s=%s", key, value)
				}
			})
		}
	})
}

func TestSQLiteDSN(t *testing.T) {
	cfg := SQLiteConfig{CacheSizeKB: -2000, SyncLevel: "NORMAL", WALMode: true}

	dsn := cfg.DSN("./app.db")
	if !strings.HasPrefix(dsn, "./app.db?") {
		t.Errorf("expected ? separator, got %s", dsn)
	}
	for _, want := range []string{"_foreign_keys=on", "_busy_timeout=5000", "_journal_mode=WAL", "_synchronous=NORMAL", "_cache_size=-2000"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("expected %s in %s", want, dsn)
		}
	}

	if dsn := cfg.DSN("file:app.db?cache=shared"); !strings.Contains(dsn, "cache=shared&_foreign_keys=on") {
		t.Errorf("expected & separator, got %s", dsn)
	}

	cfg.WALMode = false
	if strings.Contains(cfg.DSN("./app.db"), "_journal_mode") {
		t.Error("expected no journal mode without WAL")
	}
}

func TestGetSQLiteConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		os.Clearenv()
		cfg := GetSQLiteConfig()
		if cfg != (SQLiteConfig{CacheSizeKB: -16000, WALMode: true, SyncLevel: "NORMAL"}) {
			t.Errorf("unexpected defaults: %+v", cfg)
		}
	})

	t.Run("Overrides", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("SQLITE_CACHE_SIZE", "-4000")
		os.Setenv("SQLITE_WAL_MODE", "false")
		os.Setenv("SQLITE_SYNC_LEVEL", "full")
		cfg := GetSQLiteConfig()
		if cfg != (SQLiteConfig{CacheSizeKB: -4000, WALMode: false, SyncLevel: "FULL"}) {
			t.Errorf("unexpected overrides: %+v", cfg)
		}
	})

	t.Run("InvalidValuesIgnored", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("SQLITE_CACHE_SIZE", "big")
		os.Setenv("SQLITE_SYNC_LEVEL", "sometimes")
		cfg := GetSQLiteConfig()
		if cfg.CacheSizeKB != -16000 || cfg.SyncLevel != "NORMAL" {
			t.Errorf("invalid values should keep defaults: %+v", cfg)
		}
	})
}
