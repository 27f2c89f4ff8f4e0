package config

import (
	"log/slog"
	"testing"
	"time"
)

// envKeys — все переменные, читаемые Load.
var envKeys = []string{
	"PDFU_PORT", "PORT", "PDFU_DATA_DIR", "PDFU_MAX_FILE_SIZE",
	"PDFU_RETENTION", "PDFU_SWEEP_INTERVAL",
	"PDFU_RATE_LIMIT_REQUESTS", "PDFU_RATE_LIMIT_WINDOW", "PDFU_TRUST_PROXY",
	"PDFU_CORS_ALLOWED_ORIGINS",
	"PDFU_DONATION_URL", "DONATION_URL", "PDFU_DONATION_PLATFORM",
	"PDFU_VERIFY_OUTPUT", "PDFU_UNLOCK_TIMEOUT",
	"PDFU_LOG_LEVEL", "PDFU_LOG_FORMAT",
	"PDFU_HTTP_READ_TIMEOUT", "PDFU_HTTP_WRITE_TIMEOUT", "PDFU_HTTP_IDLE_TIMEOUT",
	"PDFU_SHUTDOWN_TIMEOUT",
	"PDFU_DEPHEALTH_ENABLED", "PDFU_DEPHEALTH_CHECK_INTERVAL", "PDFU_DEPHEALTH_GROUP",
}

// clearEnv сбрасывает все переменные конфигурации на время теста.
// Пустое значение равносильно отсутствию переменной.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 5001 {
		t.Errorf("Port: ожидалось 5001, получено %d", cfg.Port)
	}
	if cfg.MaxFileSize != 50<<20 {
		t.Errorf("MaxFileSize: ожидалось %d, получено %d", 50<<20, cfg.MaxFileSize)
	}
	if cfg.Retention != time.Hour || cfg.SweepInterval != time.Hour {
		t.Errorf("Retention/SweepInterval: получено %s/%s", cfg.Retention, cfg.SweepInterval)
	}
	if cfg.RateLimitRequests != 10 || cfg.RateLimitWindow != 15*time.Minute {
		t.Errorf("rate limit: получено %d за %s", cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	if cfg.DonationURL != defaultDonationURL || cfg.DonationPlatform != "buymeacoffee" {
		t.Errorf("donation: получено %s / %s", cfg.DonationURL, cfg.DonationPlatform)
	}
	if len(cfg.AllowedOrigins) != len(defaultAllowedOrigins) {
		t.Errorf("AllowedOrigins: получено %v", cfg.AllowedOrigins)
	}
	if !cfg.VerifyOutput {
		t.Error("VerifyOutput по умолчанию должен быть включён")
	}
	if cfg.DephealthEnabled {
		t.Error("DephealthEnabled по умолчанию должен быть выключен")
	}
	if cfg.LogLevel != slog.LevelInfo || cfg.LogFormat != "json" {
		t.Errorf("логирование: получено %s / %s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.DataDir == "" {
		t.Error("DataDir не должен быть пустым")
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PDFU_PORT", "8080")
	t.Setenv("PDFU_MAX_FILE_SIZE", "1048576")
	t.Setenv("PDFU_RETENTION", "30m")
	t.Setenv("PDFU_RATE_LIMIT_REQUESTS", "100")
	t.Setenv("PDFU_TRUST_PROXY", "true")
	t.Setenv("PDFU_CORS_ALLOWED_ORIGINS", " https://a.example.com, ,https://b.example.com ")
	t.Setenv("PDFU_LOG_LEVEL", "debug")
	t.Setenv("PDFU_LOG_FORMAT", "text")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port: ожидалось 8080, получено %d", cfg.Port)
	}
	if cfg.MaxFileSize != 1<<20 || cfg.MaxFileSizeMB() != 1 {
		t.Errorf("MaxFileSize: получено %d", cfg.MaxFileSize)
	}
	if cfg.Retention != 30*time.Minute {
		t.Errorf("Retention: получено %s", cfg.Retention)
	}
	if cfg.RateLimitRequests != 100 || !cfg.TrustProxy {
		t.Errorf("rate limit: получено %d, trust proxy %v", cfg.RateLimitRequests, cfg.TrustProxy)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("AllowedOrigins: получено %q", cfg.AllowedOrigins)
	}
	if cfg.LogLevel != slog.LevelDebug || cfg.LogFormat != "text" {
		t.Errorf("логирование: получено %s / %s", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoad_CompatFallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3005")
	t.Setenv("DONATION_URL", "https://ko-fi.com/someone")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 3005 {
		t.Errorf("PORT: ожидалось 3005, получено %d", cfg.Port)
	}
	if cfg.DonationURL != "https://ko-fi.com/someone" {
		t.Errorf("DONATION_URL: получено %s", cfg.DonationURL)
	}

	// PDFU_* имеют приоритет
	t.Setenv("PDFU_PORT", "4000")
	t.Setenv("PDFU_DONATION_URL", "https://example.com/donate")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 4000 || cfg.DonationURL != "https://example.com/donate" {
		t.Errorf("приоритет PDFU_*: получено %d / %s", cfg.Port, cfg.DonationURL)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"PDFU_PORT", "abc"},
		{"PDFU_PORT", "70000"},
		{"PDFU_MAX_FILE_SIZE", "0"},
		{"PDFU_MAX_FILE_SIZE", "-5"},
		{"PDFU_RETENTION", "1 hour"},
		{"PDFU_RETENTION", "0s"},
		{"PDFU_SWEEP_INTERVAL", "-1m"},
		{"PDFU_RATE_LIMIT_REQUESTS", "0"},
		{"PDFU_RATE_LIMIT_WINDOW", "x"},
		{"PDFU_TRUST_PROXY", "maybe"},
		{"PDFU_VERIFY_OUTPUT", "yes please"},
		{"PDFU_LOG_LEVEL", "verbose"},
		{"PDFU_LOG_FORMAT", "xml"},
		{"PDFU_SHUTDOWN_TIMEOUT", "0"},
		{"PDFU_DEPHEALTH_ENABLED", "2"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("ожидалась ошибка для %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseLogLevel(%q): ожидалось %s, получено %s (%v)", tt.in, tt.want, got, err)
		}
	}
}
