// Пакет config — загрузка и валидация конфигурации metafinder
// из переменных окружения.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v6"

	"github.com/bigkaa/metafinder/internal/storage/filestore"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации metafinder.
type Config struct {
	// Уровень логирования (debug, info, warn, error)
	LogLevelName string `env:"MF_LOG_LEVEL" envDefault:"info"`
	// Формат логов (json, text)
	LogFormat string `env:"MF_LOG_FORMAT" envDefault:"text"`
	// Максимальный размер входного файла в байтах
	MaxFileSize int64 `env:"MF_MAX_FILE_SIZE" envDefault:"104857600"`
	// Алгоритм контрольной суммы (md5, sha256)
	ChecksumAlgorithm string `env:"MF_CHECKSUM_ALGORITHM" envDefault:"md5"`
	// Суффикс имени копии без метаданных
	StripSuffix string `env:"MF_STRIP_SUFFIX" envDefault:"_no_metadata"`
	// Качество JPEG, если файл не удаётся разобрать на сегменты и он перекодируется (1-100)
	JPEGQuality int `env:"MF_JPEG_QUALITY" envDefault:"95"`
	// Базовый адрес карт для ссылки на координаты
	MapURL string `env:"MF_MAP_URL" envDefault:"https://www.google.com/maps"`
	// Размер стороны превью в пикселях
	PreviewSize int `env:"MF_PREVIEW_SIZE" envDefault:"300"`
	// Путь к textfile для Prometheus (опционально)
	MetricsFile string `env:"MF_METRICS_FILE"`

	// LogLevel — разобранный уровень логирования
	LogLevel slog.Level
}

// Load загружает конфигурацию из переменных окружения, валидирует
// значения и возвращает Config или ошибку.
func Load() (*Config, error) {
	return load(env.Options{})
}

// Default возвращает конфигурацию со значениями по умолчанию из тегов
// envDefault, без чтения окружения процесса.
func Default() *Config {
	cfg, err := load(env.Options{Environment: map[string]string{}})
	if err != nil {
		panic(fmt.Sprintf("некорректные значения по умолчанию: %v", err))
	}
	return cfg
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg, opts); err != nil {
		return nil, fmt.Errorf("ошибка чтения переменных окружения: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет значения и заполняет производные поля.
func (cfg *Config) Validate() error {
	level, err := parseLogLevel(cfg.LogLevelName)
	if err != nil {
		return fmt.Errorf("MF_LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("MF_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	if cfg.MaxFileSize <= 0 {
		return fmt.Errorf("MF_MAX_FILE_SIZE: значение должно быть положительным, получено %d", cfg.MaxFileSize)
	}

	cfg.ChecksumAlgorithm = strings.ToLower(cfg.ChecksumAlgorithm)
	if cfg.ChecksumAlgorithm != filestore.AlgorithmMD5 && cfg.ChecksumAlgorithm != filestore.AlgorithmSHA256 {
		return fmt.Errorf("MF_CHECKSUM_ALGORITHM: недопустимое значение %q, допустимые: md5, sha256", cfg.ChecksumAlgorithm)
	}

	if cfg.StripSuffix == "" {
		return fmt.Errorf("MF_STRIP_SUFFIX: значение не может быть пустым")
	}
	if strings.ContainsAny(cfg.StripSuffix, `/\`) {
		return fmt.Errorf("MF_STRIP_SUFFIX: значение %q не должно содержать разделителей пути", cfg.StripSuffix)
	}

	if cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return fmt.Errorf("MF_JPEG_QUALITY: значение %d вне допустимого диапазона 1-100", cfg.JPEGQuality)
	}

	if cfg.MapURL == "" {
		return fmt.Errorf("MF_MAP_URL: значение не может быть пустым")
	}

	if cfg.PreviewSize <= 0 {
		return fmt.Errorf("MF_PREVIEW_SIZE: значение должно быть положительным, получено %d", cfg.PreviewSize)
	}

	return nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
// Логи пишутся в w (stderr для CLI), stdout остаётся для вывода записей.
func SetupLogger(cfg *Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
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
