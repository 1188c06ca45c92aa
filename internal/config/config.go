// Пакет config — загрузка и валидация конфигурации Media Storage
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Media Storage.
// Структура неизменяема после Load и передаётся компонентам по ссылке —
// никакого ambient-доступа к окружению из бизнес-кода.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Базовый публичный URL (без завершающего /), используется для
	// построения публичных ссылок на ассеты
	BaseURL string
	// Корневая директория хранилища (внутри создаются четыре раздела)
	StorageDir string

	// Максимальный размер изображения в байтах
	MaxImageSize int64
	// Максимальный размер PDF в байтах
	MaxPDFSize int64

	// Параметры подключения к PostgreSQL
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Размер LRU-кэша API-ключей тенантов
	TenantCacheSize int
	// TTL записи кэша API-ключей
	TenantCacheTTL time.Duration

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string

	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration

	// Таймауты HTTP-сервера
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// MS_PORT — порт HTTP-сервера (по умолчанию 3000)
	port, err := getEnvInt("MS_PORT", 3000)
	if err != nil {
		return nil, fmt.Errorf("MS_PORT: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("MS_PORT: значение %d вне диапазона 1-65535", port)
	}
	cfg.Port = port

	// MS_BASE_URL — обязательный, базовый публичный URL
	baseURL, err := getEnvRequired("MS_BASE_URL")
	if err != nil {
		return nil, err
	}
	cfg.BaseURL = strings.TrimRight(baseURL, "/")

	// MS_STORAGE_DIR — обязательный, корень хранилища
	cfg.StorageDir, err = getEnvRequired("MS_STORAGE_DIR")
	if err != nil {
		return nil, err
	}

	// MS_MAX_IMAGE_SIZE — максимальный размер изображения (по умолчанию 2 MiB)
	cfg.MaxImageSize, err = getEnvInt64("MS_MAX_IMAGE_SIZE", 2<<20)
	if err != nil {
		return nil, fmt.Errorf("MS_MAX_IMAGE_SIZE: %w", err)
	}
	if cfg.MaxImageSize <= 0 {
		return nil, fmt.Errorf("MS_MAX_IMAGE_SIZE: значение должно быть положительным")
	}

	// MS_MAX_PDF_SIZE — максимальный размер PDF (по умолчанию 3 MiB)
	cfg.MaxPDFSize, err = getEnvInt64("MS_MAX_PDF_SIZE", 3<<20)
	if err != nil {
		return nil, fmt.Errorf("MS_MAX_PDF_SIZE: %w", err)
	}
	if cfg.MaxPDFSize <= 0 {
		return nil, fmt.Errorf("MS_MAX_PDF_SIZE: значение должно быть положительным")
	}

	// Подключение к PostgreSQL
	cfg.DBHost, err = getEnvRequired("MS_DB_HOST")
	if err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("MS_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("MS_DB_PORT: %w", err)
	}
	cfg.DBUser, err = getEnvRequired("MS_DB_USER")
	if err != nil {
		return nil, err
	}
	cfg.DBPassword, err = getEnvRequired("MS_DB_PASSWORD")
	if err != nil {
		return nil, err
	}
	cfg.DBName, err = getEnvRequired("MS_DB_NAME")
	if err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("MS_DB_SSL_MODE", "disable")

	// MS_TENANT_CACHE_SIZE — размер LRU-кэша API-ключей (по умолчанию 1024)
	cfg.TenantCacheSize, err = getEnvInt("MS_TENANT_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("MS_TENANT_CACHE_SIZE: %w", err)
	}
	if cfg.TenantCacheSize <= 0 {
		return nil, fmt.Errorf("MS_TENANT_CACHE_SIZE: значение должно быть положительным")
	}

	// MS_TENANT_CACHE_TTL — TTL кэша API-ключей (по умолчанию 1m)
	cfg.TenantCacheTTL, err = getEnvDuration("MS_TENANT_CACHE_TTL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("MS_TENANT_CACHE_TTL: %w", err)
	}

	// MS_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("MS_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MS_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// MS_DEPHEALTH_GROUP — имя группы в метриках topologymetrics
	cfg.DephealthGroup = getEnvDefault("MS_DEPHEALTH_GROUP", "media-storage")

	// MS_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("MS_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("MS_LOG_LEVEL: %w", err)
	}

	// MS_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("MS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("MS_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// MS_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("MS_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MS_SHUTDOWN_TIMEOUT: %w", err)
	}

	// Таймауты HTTP-сервера. Write-таймаут просторный: скачивание
	// приватных файлов — потоковое
	cfg.HTTPReadTimeout, err = getEnvDuration("MS_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MS_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("MS_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MS_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("MS_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MS_HTTP_IDLE_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения pgx к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
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

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

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

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1m, 1h)", val)
	}
	return d, nil
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
