package config

import "testing"

func TestLoad_RequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error when OPENAI_API_KEY is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.OracleRateLimit != 5 {
		t.Errorf("expected default rate limit 5, got %v", cfg.OracleRateLimit)
	}
	if cfg.OracleRateBurst != 10 {
		t.Errorf("expected default burst 10, got %v", cfg.OracleRateBurst)
	}
	if cfg.BotDebugMode {
		t.Error("debug mode should default to off")
	}
	if cfg.ShutdownTimeoutMS != 5000 {
		t.Errorf("expected default shutdown timeout 5000, got %v", cfg.ShutdownTimeoutMS)
	}
}

func TestLoad_OTELRequiresEndpoint(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error when tracing is enabled without an endpoint")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("AI_MODEL", "gpt-4o")
	t.Setenv("ORACLE_RATE_LIMIT", "2.5")
	t.Setenv("BOT_DEBUG_MODE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AIModel != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %s", cfg.AIModel)
	}
	if cfg.OracleRateLimit != 2.5 {
		t.Errorf("expected rate limit 2.5, got %v", cfg.OracleRateLimit)
	}
	if !cfg.BotDebugMode {
		t.Error("expected debug mode on")
	}
}
