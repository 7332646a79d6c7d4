// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Catalog backends
const (
	CatalogStorePostgres = "postgres"
	CatalogStoreMongoDB  = "mongodb"
)

// Config holds all configuration for the service
type Config struct {
	App       AppConfig       `json:"app"`
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Catalog   CatalogConfig   `json:"catalog"`
	Mongo     MongoConfig     `json:"mongo"`
	Cache     CacheConfig     `json:"cache"`
	Security  SecurityConfig  `json:"security"`
	JWT       JWTConfig       `json:"jwt"`
	Email     EmailConfig     `json:"email"`
	Chatbot   ChatbotConfig   `json:"chatbot"`
	Captcha   CaptchaConfig   `json:"captcha"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics"`
	Scheduler SchedulerConfig `json:"scheduler"`
}

type AppConfig struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	BaseURL     string `json:"base_url"`
}

type ServerConfig struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	ReadTimeout       time.Duration `json:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"`
	RequestTimeout    time.Duration `json:"request_timeout"`
	BodyLimit         int           `json:"body_limit"`
	EnableCompression bool          `json:"enable_compression"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

// DSN renders the libpq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// CatalogConfig selects where UMKM, destinations, favorites and counters live.
type CatalogConfig struct {
	Store            string        `json:"store"` // postgres, mongodb
	AllocatorRetries int           `json:"allocator_retries"`
	AllocatorBackoff time.Duration `json:"allocator_backoff"`
}

type MongoConfig struct {
	URL              string        `json:"url"`
	Database         string        `json:"database"`
	ConnectTimeout   time.Duration `json:"connect_timeout"`
	OperationTimeout time.Duration `json:"operation_timeout"`
	UseTransactions  bool          `json:"use_transactions"`
}

type CacheConfig struct {
	Enabled        bool          `json:"enabled"`
	RedisURL       string        `json:"redis_url"`
	RedisDB        int           `json:"redis_db"`
	RedisPrefix    string        `json:"redis_prefix"`
	ChatHistoryTTL time.Duration `json:"chat_history_ttl"`
	HealthInterval time.Duration `json:"health_interval"`
}

type SecurityConfig struct {
	AllowedOrigins    []string      `json:"allowed_origins"`
	AllowedMethods    []string      `json:"allowed_methods"`
	AllowedHeaders    []string      `json:"allowed_headers"`
	AllowCredentials  bool          `json:"allow_credentials"`
	CORSMaxAge        int           `json:"cors_max_age"`
	AuthRateLimit     int           `json:"auth_rate_limit"`   // requests per minute
	GlobalRateLimit   int           `json:"global_rate_limit"` // requests per minute
	RateLimitWindow   time.Duration `json:"rate_limit_window"`
	PasswordMinLength int           `json:"password_min_length"`
	BcryptCost        int           `json:"bcrypt_cost"`
}

type JWTConfig struct {
	SecretKey      string        `json:"secret_key"`
	AccessTokenTTL time.Duration `json:"access_token_ttl"`
	Issuer         string        `json:"issuer"`
	Audience       string        `json:"audience"`
}

type EmailConfig struct {
	Enabled           bool          `json:"enabled"`
	SkipVerification  bool          `json:"skip_verification"`
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	Username          string        `json:"username"`
	Password          string        `json:"password"`
	FromEmail         string        `json:"from_email"`
	FromName          string        `json:"from_name"`
	RetryAttempts     int           `json:"retry_attempts"`
	RetryInitialDelay time.Duration `json:"retry_initial_delay"`
	Timeout           time.Duration `json:"timeout"`
}

// Configured reports whether SMTP credentials are present.
func (e EmailConfig) Configured() bool {
	return e.Enabled && e.Username != "" && e.Password != ""
}

type ChatbotConfig struct {
	APIKey            string        `json:"-"`
	Endpoint          string        `json:"endpoint"`
	Model             string        `json:"model"`
	MaxOutputTokens   int           `json:"max_output_tokens"`
	Timeout           time.Duration `json:"timeout"`
	RetryAttempts     int           `json:"retry_attempts"`
	RetryInitialDelay time.Duration `json:"retry_initial_delay"`
	RequestsPerSecond float64       `json:"requests_per_second"`
	Burst             int           `json:"burst"`
}

type CaptchaConfig struct {
	Enabled   bool          `json:"enabled"`
	TTL       time.Duration `json:"ttl"`
	Tolerance int           `json:"tolerance"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Format     string `json:"format"` // json, console
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type SchedulerConfig struct {
	TokenCleanupInterval time.Duration `json:"token_cleanup_interval"`
}

// IsProduction reports whether strict validation applies.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, "production")
}

// Load reads envFile (if present) and the process environment. Process environment wins.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", envFile, err)
		}
	}

	l := loader{v: v}
	cfg := &Config{
		App: AppConfig{
			Name:        l.getString("APP_NAME", "ManudBE"),
			Version:     l.getString("APP_VERSION", "1.0.0"),
			Environment: l.getString("APP_ENV", "development"),
			BaseURL:     strings.TrimRight(l.getString("BASE_URL", "http://localhost:7777"), "/"),
		},
		Server: ServerConfig{
			Host:              l.getString("APP_HOST", "0.0.0.0"),
			Port:              l.getInt("APP_PORT", 7777),
			ReadTimeout:       l.getDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:      l.getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:       l.getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout:   l.getDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RequestTimeout:    l.getDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
			BodyLimit:         l.getInt("SERVER_BODY_LIMIT", 4*1024*1024),
			EnableCompression: l.getBool("SERVER_ENABLE_COMPRESSION", true),
		},
		Database: DatabaseConfig{
			Host:            l.getString("DB_HOST", "localhost"),
			Port:            l.getInt("DB_PORT", 5432),
			Name:            l.getString("DB_NAME", "manud"),
			User:            l.getString("DB_USER", "postgres"),
			Password:        l.getString("DB_PASSWORD", ""),
			SSLMode:         l.getString("DB_SSL_MODE", "disable"),
			MaxOpenConns:    l.getInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    l.getInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: l.getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: l.getDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryTime:   l.getDuration("DB_SLOW_QUERY_TIME", time.Second),
		},
		Catalog: CatalogConfig{
			Store:            strings.ToLower(l.getString("CATALOG_STORE", CatalogStorePostgres)),
			AllocatorRetries: l.getInt("ALLOCATOR_MAX_RETRIES", 10),
			AllocatorBackoff: l.getDuration("ALLOCATOR_INITIAL_BACKOFF", 5*time.Millisecond),
		},
		Mongo: MongoConfig{
			URL:              l.getString("MONGO_URL", "mongodb://localhost:27017"),
			Database:         l.getString("MONGO_DATABASE", "manud"),
			ConnectTimeout:   l.getDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
			OperationTimeout: l.getDuration("MONGO_OPERATION_TIMEOUT", 15*time.Second),
			UseTransactions:  l.getBool("MONGO_USE_TRANSACTIONS", false),
		},
		Cache: CacheConfig{
			Enabled:        l.getBool("CACHE_ENABLED", false),
			RedisURL:       l.getString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:        l.getInt("CACHE_REDIS_DB", 0),
			RedisPrefix:    l.getString("CACHE_REDIS_PREFIX", "manud:"),
			ChatHistoryTTL: l.getDuration("CHAT_HISTORY_TTL", 24*time.Hour),
			HealthInterval: l.getDuration("CACHE_HEALTH_INTERVAL", 30*time.Second),
		},
		Security: SecurityConfig{
			AllowedOrigins:    l.getStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods:    l.getStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders:    l.getStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}),
			AllowCredentials:  l.getBool("CORS_ALLOW_CREDENTIALS", false),
			CORSMaxAge:        l.getInt("CORS_MAX_AGE", 86400),
			AuthRateLimit:     l.getInt("AUTH_RATE_LIMIT", 20),
			GlobalRateLimit:   l.getInt("GLOBAL_RATE_LIMIT", 2000),
			RateLimitWindow:   l.getDuration("RATE_LIMIT_WINDOW", time.Minute),
			PasswordMinLength: l.getInt("PASSWORD_MIN_LENGTH", 8),
			BcryptCost:        l.getInt("BCRYPT_COST", 10),
		},
		JWT: JWTConfig{
			SecretKey:      l.getString("JWT_SECRET", ""),
			AccessTokenTTL: l.getDuration("JWT_EXPIRED_IN", 24*time.Hour),
			Issuer:         l.getString("JWT_ISSUER", "manud-be"),
			Audience:       l.getString("JWT_AUDIENCE", "manud-be-api"),
		},
		Email: EmailConfig{
			Enabled:           l.getBool("EMAIL_ENABLED", true),
			SkipVerification:  l.getBool("SKIP_EMAIL_VERIFICATION", false),
			Host:              l.getString("EMAIL_HOST", "smtp.gmail.com"),
			Port:              l.getInt("EMAIL_PORT", 587),
			Username:          l.getString("EMAIL_USER", ""),
			Password:          l.getString("EMAIL_PASSWORD", ""),
			FromEmail:         l.getString("EMAIL_FROM", ""),
			FromName:          l.getString("EMAIL_FROM_NAME", "ManudBE API"),
			RetryAttempts:     l.getInt("EMAIL_RETRY_ATTEMPTS", 3),
			RetryInitialDelay: l.getDuration("EMAIL_RETRY_DELAY", time.Second),
			Timeout:           l.getDuration("EMAIL_TIMEOUT", 10*time.Second),
		},
		Chatbot: ChatbotConfig{
			APIKey:            l.getString("GEMINI_API_KEY", ""),
			Endpoint:          l.getString("GEMINI_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta"),
			Model:             l.getString("GEMINI_MODEL", "gemini-1.5-flash"),
			MaxOutputTokens:   l.getInt("GEMINI_MAX_OUTPUT_TOKENS", 500),
			Timeout:           l.getDuration("GEMINI_TIMEOUT", 30*time.Second),
			RetryAttempts:     l.getInt("GEMINI_RETRY_ATTEMPTS", 3),
			RetryInitialDelay: l.getDuration("GEMINI_RETRY_DELAY", 500*time.Millisecond),
			RequestsPerSecond: l.getFloat("GEMINI_REQUESTS_PER_SECOND", 5),
			Burst:             l.getInt("GEMINI_BURST", 10),
		},
		Captcha: CaptchaConfig{
			Enabled:   l.getBool("CAPTCHA_ENABLED", false),
			TTL:       l.getDuration("CAPTCHA_TTL", 2*time.Minute),
			Tolerance: l.getInt("CAPTCHA_TOLERANCE", 15),
		},
		Logging: LoggingConfig{
			Level:      strings.ToLower(l.getString("LOG_LEVEL", "info")),
			Format:     l.getString("LOG_FORMAT", "json"),
			FilePath:   l.getString("LOG_FILE_PATH", ""),
			MaxSize:    l.getInt("LOG_MAX_SIZE", 100),
			MaxBackups: l.getInt("LOG_MAX_BACKUPS", 10),
			MaxAge:     l.getInt("LOG_MAX_AGE", 30),
			Compress:   l.getBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: l.getBool("METRICS_ENABLED", true),
			Path:    l.getString("METRICS_PATH", "/metrics"),
		},
		Scheduler: SchedulerConfig{
			TokenCleanupInterval: l.getDuration("TOKEN_CLEANUP_INTERVAL", time.Hour),
		},
	}

	if cfg.Email.FromEmail == "" {
		cfg.Email.FromEmail = cfg.Email.Username
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

type loader struct {
	v *viper.Viper
}

func (l loader) getString(key, defaultValue string) string {
	if value := strings.TrimSpace(l.v.GetString(key)); value != "" {
		return value
	}
	return defaultValue
}

func (l loader) getInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(l.v.GetString(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (l loader) getFloat(key string, defaultValue float64) float64 {
	if value := strings.TrimSpace(l.v.GetString(key)); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (l loader) getBool(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(l.v.GetString(key)); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (l loader) getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(l.v.GetString(key)); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (l loader) getStringSlice(key string, defaultValue []string) []string {
	if value := l.v.GetString(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// Validate checks the configuration, reporting every problem at once.
func Validate(cfg *Config) error {
	var problems []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		problems = append(problems, "APP_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 || cfg.Server.WriteTimeout <= 0 || cfg.Server.IdleTimeout <= 0 {
		problems = append(problems, "server timeouts must be positive")
	}

	if cfg.Database.Host == "" {
		problems = append(problems, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		problems = append(problems, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		problems = append(problems, "DB_NAME is required")
	}

	switch cfg.Catalog.Store {
	case CatalogStorePostgres:
	case CatalogStoreMongoDB:
		if cfg.Mongo.URL == "" || cfg.Mongo.Database == "" {
			problems = append(problems, "MONGO_URL and MONGO_DATABASE are required when CATALOG_STORE=mongodb")
		}
	default:
		problems = append(problems, fmt.Sprintf("CATALOG_STORE must be one of: %s, %s", CatalogStorePostgres, CatalogStoreMongoDB))
	}
	if cfg.Catalog.AllocatorRetries < 1 {
		problems = append(problems, "ALLOCATOR_MAX_RETRIES must be at least 1")
	}

	if cfg.JWT.AccessTokenTTL <= 0 {
		problems = append(problems, "JWT_EXPIRED_IN must be positive")
	}
	if cfg.Security.BcryptCost < 4 || cfg.Security.BcryptCost > 14 {
		problems = append(problems, "BCRYPT_COST must be between 4 and 14")
	}
	if cfg.Security.PasswordMinLength < 6 {
		problems = append(problems, "PASSWORD_MIN_LENGTH must be at least 6")
	}

	if cfg.Email.RetryAttempts < 1 {
		problems = append(problems, "EMAIL_RETRY_ATTEMPTS must be at least 1")
	}
	if cfg.Chatbot.RetryAttempts < 1 {
		problems = append(problems, "GEMINI_RETRY_ATTEMPTS must be at least 1")
	}
	if cfg.Chatbot.MaxOutputTokens <= 0 {
		problems = append(problems, "GEMINI_MAX_OUTPUT_TOKENS must be positive")
	}

	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		problems = append(problems, "CACHE_REDIS_URL is required when cache is enabled")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, cfg.Logging.Level) {
		problems = append(problems, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
	}

	if cfg.IsProduction() {
		if cfg.Database.Password == "" {
			problems = append(problems, "DB_PASSWORD is required")
		}
		if len(cfg.JWT.SecretKey) < 32 {
			problems = append(problems, "JWT_SECRET must be at least 32 characters long")
		}
		if cfg.Chatbot.APIKey == "" {
			problems = append(problems, "GEMINI_API_KEY is required")
		}
	} else if cfg.JWT.SecretKey == "" {
		problems = append(problems, "JWT_SECRET is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}
