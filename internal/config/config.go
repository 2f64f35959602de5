package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string
	AppName    string
	AppEnv     string

	DBDriver   string
	MySQLDSN   string
	SQLitePath string
	ResetDB    bool

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret      string
	JWTAccessTTL   time.Duration
	JWTRefreshTTL  time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string
	PwnedAPIURL    string
	PwnedTimeout   time.Duration
	PwnedCacheTTL  time.Duration
	LogLevel       string
	LogFormat      string
	SwaggerHost    string
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		AppName:    getEnv("APP_NAME", "Password Checker"),
		AppEnv:     getEnv("APP_ENV", "prod"),

		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "mysql")),
		MySQLDSN:   getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/password_checker?charset=utf8mb4&parseTime=True&loc=Local"),
		SQLitePath: getEnv("SQLITE_PATH", "password_checker.db"),
		ResetDB:    getEnvBool("RESET_DB", false),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getEnvInt("REDIS_DB", 0),
		RedisPass: os.Getenv("REDIS_PASSWORD"),

		JWTSecret:      getEnv("JWT_SECRET", "change-me"),
		JWTAccessTTL:   getEnvDuration("JWT_ACCESS_TTL", time.Hour),
		JWTRefreshTTL:  getEnvDuration("JWT_REFRESH_TTL", 7*24*time.Hour),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
		CORSOrigins:    getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),

		PwnedAPIURL:   strings.TrimRight(getEnv("PWNED_API_URL", "https://api.pwnedpasswords.com"), "/"),
		PwnedTimeout:  getEnvDuration("PWNED_TIMEOUT", 5*time.Second),
		PwnedCacheTTL: getEnvDuration("PWNED_CACHE_TTL", 24*time.Hour),

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
