package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const minTokenSecretLen = 32

type Config struct {
	Port        string
	DatabaseURL string
	Env         string // "dev" or "prod"
	LogLevel    string

	TokenSecret string
	TokenIssuer string
	TokenTTL    time.Duration

	UploadDir      string
	MaxUploadBytes int64

	CORSAllowedOrigins []string

	OTelExporter string // "none", "stdout", "otlp-http" or "otlp-grpc"
	OTelEndpoint string
	ServiceName  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", "./goth-blog.db"),
		Env:                getEnv("APP_ENV", "dev"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		TokenSecret:        os.Getenv("TOKEN_SECRET"),
		TokenIssuer:        getEnv("TOKEN_ISSUER", "goth-blog"),
		UploadDir:          getEnv("UPLOAD_DIR", "./storage/uploads"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		OTelExporter:       strings.ToLower(getEnv("OTEL_EXPORTER", "none")),
		OTelEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:        getEnv("OTEL_SERVICE_NAME", "goth-blog"),
	}

	ttl, err := time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL inválido: %q", os.Getenv("TOKEN_TTL"))
	}
	cfg.TokenTTL = ttl

	maxUpload, err := strconv.ParseInt(getEnv("MAX_UPLOAD_BYTES", "5242880"), 10, 64)
	if err != nil || maxUpload <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES inválido: %q", os.Getenv("MAX_UPLOAD_BYTES"))
	}
	cfg.MaxUploadBytes = maxUpload

	switch cfg.OTelExporter {
	case "none", "stdout", "otlp-http", "otlp-grpc":
	default:
		return nil, fmt.Errorf("OTEL_EXPORTER desconhecido: %q", cfg.OTelExporter)
	}

	// Validação Estrita para Produção
	if cfg.Env == "prod" {
		if cfg.TokenSecret == "" {
			return nil, fmt.Errorf("produção: TOKEN_SECRET é obrigatório")
		}
		if len(cfg.TokenSecret) < minTokenSecretLen {
			return nil, fmt.Errorf("produção: TOKEN_SECRET precisa de pelo menos %d bytes", minTokenSecretLen)
		}
	} else {
		// No dev, se não houver secret, usamos um valor fraco apenas para não quebrar o boot
		if cfg.TokenSecret == "" {
			cfg.TokenSecret = "dev-secret-keep-it-simple-but-not-safe"
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for item := range strings.SplitSeq(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
