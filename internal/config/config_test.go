package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv resets every key Load reads so host env cannot leak into tests.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT",
		"MAX_HEADER_BYTES", "GIN_MODE", "LOG_LEVEL", "LOG_PRETTY", "SWAGGER_ENABLED",
		"API_BASE_PATH", "DB_PATH", "JWT_SECRET", "TOKEN_TTL",
		"OPENAI_API_KEY", "OPENAI_BASE_URL", "RC_DEV_ALL_PRO",
		"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "STRIPE_PRICE_ID", "APP_URL",
		"RATE_RPS", "RATE_BURST", "CORS_ALLOWED_ORIGINS", "ENABLE_HSTS", "HSTS_MAX_AGE",
		"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE",
		"OTEL_SERVICE_NAME", "OTEL_TRACES_SAMPLER_ARG",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_DefaultsWithSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.GinMode != "release" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("base path = %q", cfg.APIBasePath)
	}
	if cfg.TokenTTL != 7*24*time.Hour {
		t.Fatalf("token ttl = %v", cfg.TokenTTL)
	}
	if cfg.OpenAIAPIKey != "" || cfg.Stripe.SecretKey != "" {
		t.Fatalf("providers should default to disabled")
	}
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate defaults: rps=%v burst=%d", cfg.RateRPS, cfg.RateBurst)
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}
}

func TestLoad_StripeRequiresCompanionKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "STRIPE_WEBHOOK_SECRET") {
		t.Fatalf("expected webhook secret error, got %v", err)
	}

	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_1")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "STRIPE_PRICE_ID") {
		t.Fatalf("expected price id error, got %v", err)
	}

	t.Setenv("STRIPE_PRICE_ID", "price_1")
	if _, err := Load(); err != nil {
		t.Fatalf("full stripe config should load: %v", err)
	}
}

func TestLoad_NormalizesAndValidates(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("GIN_MODE", "bogus")
	t.Setenv("API_BASE_PATH", "api/v2/")
	t.Setenv("APP_URL", "https://app.example.com/")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , https://b.example ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("gin mode = %q", cfg.GinMode)
	}
	if cfg.APIBasePath != "/api/v2" {
		t.Fatalf("base path = %q", cfg.APIBasePath)
	}
	if cfg.Stripe.AppURL != "https://app.example.com" {
		t.Fatalf("app url = %q", cfg.Stripe.AppURL)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[0] != "https://a.example" {
		t.Fatalf("cors origins = %#v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := []struct {
		key, val string
	}{
		{"LOG_LEVEL", "verbose"},
		{"RATE_RPS", "-1"},
		{"RATE_BURST", "0"},
		{"OTEL_TRACES_SAMPLER_ARG", "2"},
		{"TOKEN_TTL", "-1h"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("JWT_SECRET", "s")
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.val)
			}
		})
	}
}

func TestMustLoad_PanicsOnInvalid(t *testing.T) {
	clearEnv(t)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	MustLoad()
}

func TestHelpers(t *testing.T) {
	clearEnv(t)
	t.Setenv("X_BOOL", "YES")
	if !getbool("X_BOOL", false) {
		t.Fatalf("getbool yes")
	}
	t.Setenv("X_BOOL", "off")
	if getbool("X_BOOL", true) {
		t.Fatalf("getbool off")
	}
	t.Setenv("X_DUR", "90s")
	if getdur("X_DUR", time.Second) != 90*time.Second {
		t.Fatalf("getdur")
	}
	t.Setenv("X_DUR", "nope")
	if getdur("X_DUR", time.Second) != time.Second {
		t.Fatalf("getdur fallback")
	}
	if normalizeBasePath("") != "/" || normalizeBasePath("v1/") != "/v1" {
		t.Fatalf("normalizeBasePath")
	}
}
