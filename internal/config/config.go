// Пакет config — загрузка и валидация конфигурации share-module
// из переменных окружения.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Бэкенды метаданных.
const (
	MetadataPostgres = "postgres"
	MetadataMongo    = "mongo"
	MetadataMemory   = "memory"
)

// Бэкенды blob-хранилища.
const (
	BlobMinIO = "minio"
	BlobLocal = "local"
)

// Config содержит все параметры конфигурации share-module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Максимальный размер загружаемого файла в байтах
	MaxUploadSize int64
	// Разрешённые MIME-типы загрузки (пусто = любые, допускается префикс "image/*")
	AllowedContentTypes []string

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// --- Хранилище метаданных ---

	// MetadataBackend — postgres, mongo или memory
	MetadataBackend string

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// MongoURI — строка подключения MongoDB
	MongoURI string
	// MongoDatabase — имя базы MongoDB
	MongoDatabase string

	// --- Blob-хранилище ---

	// BlobBackend — minio или local
	BlobBackend string
	// BlobContainer — bucket (MinIO) или подкаталог (local)
	BlobContainer string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOUseSSL    bool

	// BlobLocalDir — корневой каталог локального хранилища
	BlobLocalDir string
	// BlobSigningKey — ключ HMAC для подписанных ссылок локального хранилища
	BlobSigningKey string
	// PublicBaseURL — внешний URL сервиса для подписанных ссылок
	PublicBaseURL string

	// --- AI-коллаборатор ---

	// AIProvider — none, gemini или openai
	AIProvider string
	AIAPIKey   string
	AIModel    string
	AIBaseURL  string
	// AITimeout — таймаут одного запроса к AI
	AITimeout time.Duration

	// --- JWT ---

	JWTJWKSURL string
	JWTIssuer  string
	JWTLeeway  time.Duration

	// --- Кэш и поиск ---

	CacheMaxSize int
	CacheTTL     time.Duration
	// RecommendPool — число кандидатов для рекомендаций
	RecommendPool int
	// SearchPool — размер пула кандидатов AI-поиска
	SearchPool int

	// --- Dephealth ---

	DephealthCheckInterval time.Duration
	DephealthGroup         string

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Ошибки всех переменных собираются и возвращаются вместе.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error
	var err error

	check := func(key string, e error) {
		if e != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, e))
		}
	}

	// --- Сервер ---

	cfg.Port, err = getEnvInt("FS_PORT", 8040)
	check("FS_PORT", err)
	if err == nil && (cfg.Port < 1 || cfg.Port > 65535) {
		check("FS_PORT", fmt.Errorf("порт вне диапазона 1-65535: %d", cfg.Port))
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("FS_LOG_LEVEL", "info"))
	check("FS_LOG_LEVEL", err)

	cfg.LogFormat = getEnvDefault("FS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		check("FS_LOG_FORMAT", fmt.Errorf("недопустимый формат %q, допустимые: json, text", cfg.LogFormat))
	}

	maxUpload, err := getEnvInt("FS_MAX_UPLOAD_MB", 100)
	check("FS_MAX_UPLOAD_MB", err)
	cfg.MaxUploadSize = int64(maxUpload) << 20
	cfg.AllowedContentTypes = parseCSV(os.Getenv("FS_ALLOWED_CONTENT_TYPES"))

	cfg.HTTPReadTimeout, err = getEnvDuration("FS_HTTP_READ_TIMEOUT", 30*time.Second)
	check("FS_HTTP_READ_TIMEOUT", err)
	cfg.HTTPWriteTimeout, err = getEnvDuration("FS_HTTP_WRITE_TIMEOUT", 120*time.Second)
	check("FS_HTTP_WRITE_TIMEOUT", err)
	cfg.HTTPIdleTimeout, err = getEnvDuration("FS_HTTP_IDLE_TIMEOUT", 120*time.Second)
	check("FS_HTTP_IDLE_TIMEOUT", err)

	// --- Хранилище метаданных ---

	cfg.MetadataBackend = strings.ToLower(getEnvDefault("FS_METADATA_BACKEND", MetadataPostgres))
	switch cfg.MetadataBackend {
	case MetadataPostgres:
		cfg.DBHost, err = getEnvRequired("FS_DB_HOST")
		check("FS_DB_HOST", err)
		cfg.DBName, err = getEnvRequired("FS_DB_NAME")
		check("FS_DB_NAME", err)
		cfg.DBUser, err = getEnvRequired("FS_DB_USER")
		check("FS_DB_USER", err)
		cfg.DBPassword, err = getEnvRequired("FS_DB_PASSWORD")
		check("FS_DB_PASSWORD", err)
	case MetadataMongo:
		cfg.MongoURI, err = getEnvRequired("FS_MONGO_URI")
		check("FS_MONGO_URI", err)
	case MetadataMemory:
	default:
		check("FS_METADATA_BACKEND", fmt.Errorf("недопустимое значение %q, допустимые: postgres, mongo, memory", cfg.MetadataBackend))
	}
	cfg.DBPort, err = getEnvInt("FS_DB_PORT", 5432)
	check("FS_DB_PORT", err)
	cfg.DBSSLMode = getEnvDefault("FS_DB_SSL_MODE", "disable")
	cfg.MongoDatabase = getEnvDefault("FS_MONGO_DATABASE", "fileshare")

	// --- Blob-хранилище ---

	cfg.BlobBackend = strings.ToLower(getEnvDefault("FS_BLOB_BACKEND", BlobMinIO))
	cfg.BlobContainer = getEnvDefault("FS_BLOB_CONTAINER", "files")
	cfg.PublicBaseURL = strings.TrimRight(getEnvDefault("FS_PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", cfg.Port)), "/")
	switch cfg.BlobBackend {
	case BlobMinIO:
		cfg.MinIOEndpoint, err = getEnvRequired("FS_MINIO_ENDPOINT")
		check("FS_MINIO_ENDPOINT", err)
		cfg.MinIOAccessKey, err = getEnvRequired("FS_MINIO_ACCESS_KEY")
		check("FS_MINIO_ACCESS_KEY", err)
		cfg.MinIOSecretKey, err = getEnvRequired("FS_MINIO_SECRET_KEY")
		check("FS_MINIO_SECRET_KEY", err)
		cfg.MinIOUseSSL, err = getEnvBool("FS_MINIO_USE_SSL", false)
		check("FS_MINIO_USE_SSL", err)
	case BlobLocal:
		cfg.BlobLocalDir = getEnvDefault("FS_BLOB_LOCAL_DIR", "/data/blobs")
		cfg.BlobSigningKey, err = getEnvRequired("FS_BLOB_SIGNING_KEY")
		check("FS_BLOB_SIGNING_KEY", err)
		if err == nil && len(cfg.BlobSigningKey) < 32 {
			check("FS_BLOB_SIGNING_KEY", errors.New("ключ должен быть не короче 32 символов"))
		}
	default:
		check("FS_BLOB_BACKEND", fmt.Errorf("недопустимое значение %q, допустимые: minio, local", cfg.BlobBackend))
	}

	// --- AI-коллаборатор ---

	cfg.AIProvider = strings.ToLower(getEnvDefault("FS_AI_PROVIDER", "none"))
	switch cfg.AIProvider {
	case "none":
	case "gemini":
		cfg.AIAPIKey, err = getEnvRequired("FS_AI_API_KEY")
		check("FS_AI_API_KEY", err)
	case "openai":
		// OpenAI-совместимые локальные серверы работают без ключа
		cfg.AIAPIKey = os.Getenv("FS_AI_API_KEY")
	default:
		check("FS_AI_PROVIDER", fmt.Errorf("недопустимое значение %q, допустимые: none, gemini, openai", cfg.AIProvider))
	}
	cfg.AIModel = os.Getenv("FS_AI_MODEL")
	cfg.AIBaseURL = os.Getenv("FS_AI_BASE_URL")
	cfg.AITimeout, err = getEnvDuration("FS_AI_TIMEOUT", 10*time.Second)
	check("FS_AI_TIMEOUT", err)

	// --- JWT ---

	cfg.JWTJWKSURL, err = getEnvRequired("FS_JWT_JWKS_URL")
	check("FS_JWT_JWKS_URL", err)
	cfg.JWTIssuer = os.Getenv("FS_JWT_ISSUER")
	cfg.JWTLeeway, err = getEnvDuration("FS_JWT_LEEWAY", 5*time.Second)
	check("FS_JWT_LEEWAY", err)

	// --- Кэш и поиск ---

	cfg.CacheMaxSize, err = getEnvInt("FS_CACHE_MAX_SIZE", 10000)
	check("FS_CACHE_MAX_SIZE", err)
	cfg.CacheTTL, err = getEnvDuration("FS_CACHE_TTL", 30*time.Second)
	check("FS_CACHE_TTL", err)
	cfg.RecommendPool, err = getEnvInt("FS_RECOMMEND_POOL", 100)
	check("FS_RECOMMEND_POOL", err)
	cfg.SearchPool, err = getEnvInt("FS_SEARCH_POOL", 100)
	check("FS_SEARCH_POOL", err)

	// --- Dephealth ---

	cfg.DephealthCheckInterval, err = getEnvDuration("FS_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	check("FS_DEPHEALTH_CHECK_INTERVAL", err)
	cfg.DephealthGroup = getEnvDefault("FS_DEPHEALTH_GROUP", "fileshare")

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("FS_SHUTDOWN_TIMEOUT", 5*time.Second)
	check("FS_SHUTDOWN_TIMEOUT", err)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL для golang-migrate (схема pgx5).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// DependencyURL возвращает URL PostgreSQL без учётных данных
// (метки метрик мониторинга зависимостей).
func (c *Config) DependencyURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
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
		return "", errors.New("обязательная переменная окружения не задана")
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

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пустые элементы отбрасываются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
