// Пакет config — загрузка и валидация конфигурации Artifact Delivery
// Module из переменных окружения.
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

// Config содержит все параметры конфигурации Artifact Delivery Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 120s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- Удалённое object store ---

	// Базовый URL API хранилища (обязательный)
	StoreBaseURL string
	// API-ключ хранилища (опционально)
	StoreAPIKey string
	// Папка хранилища для новых артефактов
	StoreFolder string
	// Таймаут put/delete запросов к хранилищу
	StoreTimeout time.Duration

	// --- Read path ---

	// Базовый URL legacy-файлового сервера (пустой — legacy отключён)
	LegacyBaseURL string
	// Таймаут сетевого получения артефакта
	FetchTimeout time.Duration

	// --- Staging ---

	// Директория для staged-файлов загрузки
	StagingDir string
	// Максимальный размер загружаемого файла в байтах
	MaxFileSize int64

	// --- Доставка ---

	// Задержка освобождения transient handle после передачи файла хосту
	HandleReleaseDelay time.Duration
	// Страховочный TTL transient handle
	HandleTTL time.Duration
	// Размер реестра transient handle
	HandleRegistrySize int

	// --- Dephealth ---

	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Группа в метриках topologymetrics
	DephealthGroup string
	// Лейбл isentry=yes для всех зависимостей
	DephealthIsEntry bool
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// AD_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("AD_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("AD_PORT: %w", err)
	}

	// AD_LOG_LEVEL — уровень логирования (по умолчанию info)
	logLevel := getEnvDefault("AD_LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("AD_LOG_LEVEL: %w", err)
	}

	// AD_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("AD_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("AD_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("AD_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AD_HTTP_READ_TIMEOUT: %w", err)
	}

	cfg.HTTPWriteTimeout, err = getEnvDuration("AD_HTTP_WRITE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AD_HTTP_WRITE_TIMEOUT: %w", err)
	}

	cfg.HTTPIdleTimeout, err = getEnvDuration("AD_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AD_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("AD_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AD_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- Удалённое object store ---

	// AD_STORE_BASE_URL — базовый URL API хранилища (обязательный)
	cfg.StoreBaseURL, err = getEnvRequired("AD_STORE_BASE_URL")
	if err != nil {
		return nil, err
	}

	// AD_STORE_API_KEY — API-ключ хранилища (опционально)
	cfg.StoreAPIKey = getEnvDefault("AD_STORE_API_KEY", "")

	// AD_STORE_FOLDER — папка хранилища (по умолчанию artifacts)
	cfg.StoreFolder = getEnvDefault("AD_STORE_FOLDER", "artifacts")

	cfg.StoreTimeout, err = getEnvDuration("AD_STORE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AD_STORE_TIMEOUT: %w", err)
	}

	// --- Read path ---

	cfg.LegacyBaseURL = getEnvDefault("AD_LEGACY_BASE_URL", "")

	cfg.FetchTimeout, err = getEnvDuration("AD_FETCH_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AD_FETCH_TIMEOUT: %w", err)
	}

	// --- Staging ---

	cfg.StagingDir = getEnvDefault("AD_STAGING_DIR", filepath.Join(os.TempDir(), "artdelivery-staging"))

	// AD_MAX_FILE_SIZE — максимальный размер загрузки (по умолчанию 100 МиБ)
	maxSize, err := getEnvInt("AD_MAX_FILE_SIZE", 100<<20)
	if err != nil {
		return nil, fmt.Errorf("AD_MAX_FILE_SIZE: %w", err)
	}
	if maxSize <= 0 {
		return nil, fmt.Errorf("AD_MAX_FILE_SIZE: значение должно быть > 0")
	}
	cfg.MaxFileSize = int64(maxSize)

	// --- Доставка ---

	cfg.HandleReleaseDelay, err = getEnvDuration("AD_HANDLE_RELEASE_DELAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AD_HANDLE_RELEASE_DELAY: %w", err)
	}

	cfg.HandleTTL, err = getEnvDuration("AD_HANDLE_TTL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("AD_HANDLE_TTL: %w", err)
	}

	cfg.HandleRegistrySize, err = getEnvInt("AD_HANDLE_REGISTRY_SIZE", 128)
	if err != nil {
		return nil, fmt.Errorf("AD_HANDLE_REGISTRY_SIZE: %w", err)
	}

	// --- Dephealth ---

	cfg.DephealthCheckInterval, err = getEnvDuration("AD_DEPHEALTH_CHECK_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("AD_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	cfg.DephealthGroup = getEnvDefault("AD_DEPHEALTH_GROUP", "artstore")

	cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
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

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
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
