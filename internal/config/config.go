// Пакет config — загрузка и валидация конфигурации PDF Utils
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Значения по умолчанию.
const (
	defaultPort             = 5001
	defaultMaxFileSize      = 50 << 20
	defaultDonationURL      = "https://www.buymeacoffee.com/vignesh328g"
	defaultDonationPlatform = "buymeacoffee"
)

// defaultAllowedOrigins — фронтенды, которым разрешён cross-origin доступ.
var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"http://localhost:3002",
	"https://pdf-utils-frontend.vercel.app",
	"https://*.vercel.app",
}

// Config содержит все параметры конфигурации сервиса.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Директория временного хранения загрузок и разблокированных файлов
	DataDir string
	// Максимальный размер загружаемого PDF в байтах
	MaxFileSize int64
	// Возраст, после которого sweep удаляет файл
	Retention time.Duration
	// Период запуска sweep
	SweepInterval time.Duration

	// Лимит запросов с одного адреса за окно
	RateLimitRequests int
	// Длина окна rate limit
	RateLimitWindow time.Duration
	// Определять адрес клиента по X-Forwarded-For / X-Real-IP
	TrustProxy bool
	// Разрешённые origin для CORS (поддерживается шаблон "*")
	AllowedOrigins []string

	// Ссылка на страницу пожертвований
	DonationURL string
	// Название платформы пожертвований
	DonationPlatform string

	// Проверять, что результат открывается без пароля
	VerifyOutput bool
	// Таймаут одной операции снятия пароля
	UnlockTimeout time.Duration

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration

	// Мониторинг платформы пожертвований через topologymetrics
	DephealthEnabled       bool
	DephealthCheckInterval time.Duration
	DephealthGroup         string
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// PDFU_PORT, для совместимости также PORT
	portKey := "PDFU_PORT"
	if os.Getenv(portKey) == "" && os.Getenv("PORT") != "" {
		portKey = "PORT"
	}
	cfg.Port, err = getEnvInt(portKey, defaultPort)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", portKey, err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%s: значение %d вне допустимого диапазона 1-65535", portKey, cfg.Port)
	}

	cfg.DataDir = getEnvDefault("PDFU_DATA_DIR", filepath.Join(os.TempDir(), "pdf-utils", "uploads"))

	cfg.MaxFileSize, err = getEnvInt64("PDFU_MAX_FILE_SIZE", defaultMaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("PDFU_MAX_FILE_SIZE: %w", err)
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("PDFU_MAX_FILE_SIZE: значение должно быть положительным")
	}

	cfg.Retention, err = getEnvPositiveDuration("PDFU_RETENTION", time.Hour)
	if err != nil {
		return nil, err
	}

	cfg.SweepInterval, err = getEnvPositiveDuration("PDFU_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}

	cfg.RateLimitRequests, err = getEnvInt("PDFU_RATE_LIMIT_REQUESTS", 10)
	if err != nil {
		return nil, fmt.Errorf("PDFU_RATE_LIMIT_REQUESTS: %w", err)
	}
	if cfg.RateLimitRequests <= 0 {
		return nil, fmt.Errorf("PDFU_RATE_LIMIT_REQUESTS: значение должно быть положительным")
	}

	cfg.RateLimitWindow, err = getEnvPositiveDuration("PDFU_RATE_LIMIT_WINDOW", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg.TrustProxy, err = getEnvBool("PDFU_TRUST_PROXY", false)
	if err != nil {
		return nil, fmt.Errorf("PDFU_TRUST_PROXY: %w", err)
	}

	cfg.AllowedOrigins = getEnvList("PDFU_CORS_ALLOWED_ORIGINS", defaultAllowedOrigins)

	// PDFU_DONATION_URL, для совместимости также DONATION_URL
	cfg.DonationURL = getEnvDefault("PDFU_DONATION_URL", getEnvDefault("DONATION_URL", defaultDonationURL))
	cfg.DonationPlatform = getEnvDefault("PDFU_DONATION_PLATFORM", defaultDonationPlatform)

	cfg.VerifyOutput, err = getEnvBool("PDFU_VERIFY_OUTPUT", true)
	if err != nil {
		return nil, fmt.Errorf("PDFU_VERIFY_OUTPUT: %w", err)
	}

	cfg.UnlockTimeout, err = getEnvPositiveDuration("PDFU_UNLOCK_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("PDFU_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("PDFU_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("PDFU_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("PDFU_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	if cfg.HTTPReadTimeout, err = getEnvPositiveDuration("PDFU_HTTP_READ_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPWriteTimeout, err = getEnvPositiveDuration("PDFU_HTTP_WRITE_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}
	if cfg.HTTPIdleTimeout, err = getEnvPositiveDuration("PDFU_HTTP_IDLE_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getEnvPositiveDuration("PDFU_SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	cfg.DephealthEnabled, err = getEnvBool("PDFU_DEPHEALTH_ENABLED", false)
	if err != nil {
		return nil, fmt.Errorf("PDFU_DEPHEALTH_ENABLED: %w", err)
	}
	cfg.DephealthCheckInterval, err = getEnvPositiveDuration("PDFU_DEPHEALTH_CHECK_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.DephealthGroup = getEnvDefault("PDFU_DEPHEALTH_GROUP", "pdf-utils")

	return cfg, nil
}

// MaxFileSizeMB возвращает лимит размера файла в мегабайтах для сообщений клиенту.
func (c *Config) MaxFileSizeMB() int64 {
	return c.MaxFileSize >> 20
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает bool значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное логическое значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 15m, 1h)", val)
	}
	return d, nil
}

// getEnvPositiveDuration — getEnvDuration с проверкой d > 0.
// Ошибка уже содержит имя переменной.
func getEnvPositiveDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	d, err := getEnvDuration(key, defaultVal)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: длительность должна быть положительной", key)
	}
	return d, nil
}

// getEnvList разбирает список через запятую, пустые элементы отбрасываются.
func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return append([]string(nil), defaultVal...)
	}
	var items []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
