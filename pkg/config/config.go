package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	CORS          CORSConfig
	Log           LogConfig
	Dashboard     DashboardConfig
	QuestionPaper QuestionPaperConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig carries the token pair settings. Access and refresh tokens are
// signed with independent secrets and expire independently.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenSecret string
	RefreshTokenExpiry time.Duration
	CookieDomain       string
	CookieSecure       bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DashboardConfig tunes the cached student dashboard.
type DashboardConfig struct {
	CacheTTL time.Duration
}

// QuestionPaperConfig bounds the document-to-question pipeline: upload size,
// chunk size, fan-out and the per-call deadline against the AI provider.
type QuestionPaperConfig struct {
	GeminiAPIKey      string
	Model             string
	MaxUploadBytes    int64
	ChunkSize         int
	MaxChunks         int
	ChunkConcurrency  int
	GenerationTimeout time.Duration
	QuestionsPerChunk int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Auth = AuthConfig{
		AccessTokenSecret:  v.GetString("ACCESS_TOKEN_SECRET"),
		AccessTokenExpiry:  parseDuration(v.GetString("ACCESS_TOKEN_EXPIRY"), 24*time.Hour),
		RefreshTokenSecret: v.GetString("REFRESH_TOKEN_SECRET"),
		RefreshTokenExpiry: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRY"), 10*24*time.Hour),
		CookieDomain:       v.GetString("AUTH_COOKIE_DOMAIN"),
		CookieSecure:       v.GetBool("AUTH_COOKIE_SECURE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("CORS_ORIGIN"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	maxUpload := v.GetInt64("QP_MAX_UPLOAD_BYTES")
	if maxUpload <= 0 {
		maxUpload = 10 * 1024 * 1024
	}
	cfg.QuestionPaper = QuestionPaperConfig{
		GeminiAPIKey:      v.GetString("GEMINI_API_KEY"),
		Model:             v.GetString("QP_MODEL"),
		MaxUploadBytes:    maxUpload,
		ChunkSize:         v.GetInt("QP_CHUNK_SIZE"),
		MaxChunks:         v.GetInt("QP_MAX_CHUNKS"),
		ChunkConcurrency:  v.GetInt("QP_CHUNK_CONCURRENCY"),
		GenerationTimeout: parseDuration(v.GetString("QP_GENERATION_TIMEOUT"), 45*time.Second),
		QuestionsPerChunk: v.GetInt("QP_QUESTIONS_PER_CHUNK"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "college_erp")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ACCESS_TOKEN_SECRET", "dev_access_secret")
	v.SetDefault("ACCESS_TOKEN_EXPIRY", "24h")
	v.SetDefault("REFRESH_TOKEN_SECRET", "dev_refresh_secret")
	v.SetDefault("REFRESH_TOKEN_EXPIRY", "240h")
	v.SetDefault("AUTH_COOKIE_DOMAIN", "")
	v.SetDefault("AUTH_COOKIE_SECURE", true)

	v.SetDefault("CORS_ORIGIN", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("QP_MODEL", "gemini-1.5-flash")
	v.SetDefault("QP_MAX_UPLOAD_BYTES", 10*1024*1024)
	v.SetDefault("QP_CHUNK_SIZE", 8000)
	v.SetDefault("QP_MAX_CHUNKS", 12)
	v.SetDefault("QP_CHUNK_CONCURRENCY", 3)
	v.SetDefault("QP_GENERATION_TIMEOUT", "45s")
	v.SetDefault("QP_QUESTIONS_PER_CHUNK", 5)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
