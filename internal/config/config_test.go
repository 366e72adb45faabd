package config

import (
	"reflect"
	"testing"
	"time"
)

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load success + normalization + parsing ---

func TestLoad_Success_DefaultsAndOverrides(t *testing.T) {
	// Server timeouts / sizes (valid)
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // will normalize to "release"

	// Logging / Docs
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("SWAGGER_ENABLED", "on")
	t.Setenv("API_BASE_PATH", "api/v1/") // no leading slash + trailing slash -> "/api/v1"

	// App
	t.Setenv("DB_PATH", "journal-test.db")
	t.Setenv("NOTIFY_WEBHOOK_URL", "https://notify.example.com/push")

	// Gamification
	t.Setenv("ENTRY_POINTS", "15")
	t.Setenv("POSITIVE_POINTS", "7")
	t.Setenv("POSITIVE_CONFIDENCE", "0.65")
	t.Setenv("DISPATCH_WORKERS", "4")

	// Analysis hand-off
	t.Setenv("PUBSUB_PROJECT_ID", "proj")
	t.Setenv("PUBSUB_TOPIC_ID", "journal-analysis")

	// Rate limiting (use invalids for parse to fall back to defaults)
	t.Setenv("RATE_RPS", "x")      // -> default 5.0
	t.Setenv("RATE_BURST", "nope") // -> default 10

	// Web protection
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")

	// Idempotency
	t.Setenv("IDEMPOTENCY_TTL", "48h")

	// OTEL
	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Server
	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}

	// Logging / Docs
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v1" {
		t.Fatalf("logging/docs fields unexpected: %+v", cfg)
	}

	// App
	if cfg.DBPath != "journal-test.db" || cfg.NotifyWebhookURL != "https://notify.example.com/push" {
		t.Fatalf("app fields unexpected: %+v", cfg)
	}

	// Gamification
	if cfg.Game.EntryPoints != 15 || cfg.Game.PositivePoints != 7 ||
		cfg.Game.PositiveConfidence != 0.65 || cfg.Game.DispatchWorkers != 4 {
		t.Fatalf("game fields unexpected: %+v", cfg.Game)
	}

	// Analysis hand-off
	if cfg.PubSub.ProjectID != "proj" || cfg.PubSub.TopicID != "journal-analysis" {
		t.Fatalf("pubsub fields unexpected: %+v", cfg.PubSub)
	}

	// Rate limiting fell back to defaults on parse errors
	if cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("rate fields unexpected: rps=%v burst=%d", cfg.RateRPS, cfg.RateBurst)
	}

	// CORS CSV trimmed and filtered
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %+v", cfg.CORS.AllowedOrigins)
	}

	// Security / Idempotency / OTEL
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour {
		t.Fatalf("security fields unexpected: %+v", cfg.Security)
	}
	if cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("idempotency ttl unexpected: %v", cfg.IdempotencyTTL)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure ||
		cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel fields unexpected: %+v", cfg.OTEL)
	}
}

// --- validation failures ---

func TestLoad_ValidationFailures(t *testing.T) {
	cases := map[string]struct {
		key, value string
	}{
		"bad log level":        {"LOG_LEVEL", "verbose"},
		"negative entry pts":   {"ENTRY_POINTS", "-1"},
		"negative positive":    {"POSITIVE_POINTS", "-5"},
		"confidence above one": {"POSITIVE_CONFIDENCE", "1.5"},
		"zero workers":         {"DISPATCH_WORKERS", "0"},
		"sampler out of range": {"OTEL_TRACES_SAMPLER_ARG", "2"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected validation error for %s=%s", tc.key, tc.value)
			}
		})
	}
}

func TestLoad_PubSubPairValidation(t *testing.T) {
	t.Setenv("PUBSUB_PROJECT_ID", "proj")
	t.Setenv("PUBSUB_TOPIC_ID", "")
	if _, err := Load(); err == nil {
		t.Fatalf("project id without topic id should fail validation")
	}
}

func Test_normalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":         "/",
		"/":        "/",
		"api":      "/api",
		"/api/v1/": "/api/v1",
		"  /x  ":   "/x",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}
