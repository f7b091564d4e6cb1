package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Token sources understood by the token store factory.
const (
	TokenSourceStatic  = "static"
	TokenSourceFile    = "file"
	TokenSourceRedis   = "redis"
	TokenSourceRequest = "request"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Backend BackendConfig
	Token   TokenConfig
	Redis   RedisConfig
	CORS    CORSConfig
	Log     LogConfig
	Routes  RoutesConfig
	Metrics MetricsConfig
}

// BackendConfig points the gateway at the remote professor collection.
type BackendConfig struct {
	BaseURL           string
	Timeout           time.Duration
	DeleteConcurrency int
}

// TokenConfig selects where bearer tokens are read from.
type TokenConfig struct {
	Source   string
	Value    string
	File     string
	RedisKey string
}

// RedisConfig locates the Redis instance holding the shared bearer token.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Timeout  time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RoutesConfig names the UI routes the completion flow navigates to.
type RoutesConfig struct {
	Home            string
	ProfessorReport string
}

type MetricsConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	concurrency := v.GetInt("DELETE_CONCURRENCY")
	if concurrency <= 0 {
		concurrency = 4
	}
	cfg.Backend = BackendConfig{
		BaseURL:           strings.TrimRight(v.GetString("PROFESSOR_API_BASE_URL"), "/"),
		Timeout:           parseDuration(v.GetString("PROFESSOR_API_TIMEOUT"), 15*time.Second),
		DeleteConcurrency: concurrency,
	}

	cfg.Token = TokenConfig{
		Source:   strings.ToLower(strings.TrimSpace(v.GetString("TOKEN_SOURCE"))),
		Value:    v.GetString("TOKEN_VALUE"),
		File:     v.GetString("TOKEN_FILE"),
		RedisKey: v.GetString("TOKEN_REDIS_KEY"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		Timeout:  parseDuration(v.GetString("REDIS_TIMEOUT"), 5*time.Second),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Routes = RoutesConfig{
		Home:            v.GetString("ROUTE_HOME"),
		ProfessorReport: v.GetString("ROUTE_PROFESSOR_REPORT"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("PROFESSOR_API_BASE_URL", "https://backend-api-7cos.onrender.com")
	v.SetDefault("PROFESSOR_API_TIMEOUT", "15s")
	v.SetDefault("DELETE_CONCURRENCY", 4)

	v.SetDefault("TOKEN_SOURCE", TokenSourceStatic)
	v.SetDefault("TOKEN_VALUE", "")
	v.SetDefault("TOKEN_FILE", "")
	v.SetDefault("TOKEN_REDIS_KEY", "auth:token")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_TIMEOUT", "5s")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ROUTE_HOME", "/home")
	v.SetDefault("ROUTE_PROFESSOR_REPORT", "/tela-relatorio-professor")

	v.SetDefault("ENABLE_METRICS", true)
}

// viper reports a missing explicit config file as a plain fs error rather
// than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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
