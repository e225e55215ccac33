package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "dev_only_jwt_secret"

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the postgres connection URL.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type Config struct {
	Port           string
	GinMode        string
	DB             DBConfig
	Redis          RedisConfig
	Auth           AuthConfig
	CORSOrigins    []string
	LoginRateLimit string
	LogLevel       string
	Timezone       string
}

// Load reads configs/.env and .env when present, then builds the Config from the environment.
// Malformed numbers or durations are reported together instead of falling back to defaults.
func Load() (Config, error) {
	_ = godotenv.Load("configs/.env")
	_ = godotenv.Load()

	env := &envReader{}
	cfg := Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "distribuidora"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       env.Int("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", ""),
			AccessTokenTTL:  env.Duration("ACCESS_TOKEN_TTL", 24*time.Hour),
			RefreshTokenTTL: env.Duration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		},
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		LoginRateLimit: getEnv("LOGIN_RATE_LIMIT", "10-M"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Timezone:       getEnv("TIMEZONE", "America/La_Paz"),
	}
	if err := env.Err(); err != nil {
		return Config{}, err
	}

	if cfg.Auth.JWTSecret == "" {
		if cfg.GinMode == "release" {
			return Config{}, fmt.Errorf("JWT_SECRET is required in release mode")
		}
		cfg.Auth.JWTSecret = defaultJWTSecret
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed variables and remembers every malformed one.
type envReader struct {
	problems []string
}

func (r *envReader) Int(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		r.problems = append(r.problems, fmt.Sprintf("%s=%q is not an integer", key, raw))
		return defaultValue
	}
	return value
}

func (r *envReader) Duration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		r.problems = append(r.problems, fmt.Sprintf("%s=%q is not a positive duration such as 15m or 24h", key, raw))
		return defaultValue
	}
	return value
}

func (r *envReader) Err() error {
	if len(r.problems) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(r.problems, "; "))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
