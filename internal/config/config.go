// Package config loads application configuration from environment
// variables.  A .env file in the working directory is read first when
// present; variables already set in the environment win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Data backends selectable with DATA_BACKEND.
const (
	BackendMySQL  = "mysql"
	BackendMemory = "memory"
)

// DBConfig holds the MySQL connection parameters.
type DBConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// Config holds all runtime configuration values.
type Config struct {
	Env         string // application environment (dev, prod)
	Port        string // HTTP port to listen on
	Timezone    string // IANA zone of the restaurant, used for calendar days
	DataBackend string // mysql or memory
	DB          DBConfig

	JWTSecret  string
	AccessTTL  time.Duration
	BcryptCost int

	AMQPURL     string // empty dispatches campaigns in process
	LogLevel    string
	LogFormat   string
	CORSOrigins []string

	SeedAdminEmail    string
	SeedAdminPassword string

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// Load reads the configuration.  Every missing required variable is
// reported in the returned error.
func Load() (Config, error) {
	_ = godotenv.Load()

	var missing []error
	must := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, fmt.Errorf("missing required env var: %s", key))
		}
		return v
	}

	cfg := Config{
		Env:         envStr("APP_ENV", "dev"),
		Port:        envStr("APP_PORT", "8080"),
		Timezone:    envStr("APP_TIMEZONE", "Asia/Tashkent"),
		DataBackend: strings.ToLower(envStr("DATA_BACKEND", BackendMySQL)),
		JWTSecret:   must("JWT_SECRET"),
		AccessTTL:   time.Duration(envInt("ACCESS_TOKEN_TTL_MIN", 720)) * time.Minute,
		BcryptCost:  envInt("BCRYPT_COST", 12),
		AMQPURL:     envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		LogFormat:   envStr("LOG_FORMAT", "json"),
		CORSOrigins: splitList(envStr("CORS_ORIGINS", "*")),

		SeedAdminEmail:    os.Getenv("SEED_ADMIN_EMAIL"),
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),

		Redis:     LoadRedisConfig(),
		RateLimit: LoadRateLimitConfig(),
		Cache:     LoadCacheConfig(),
	}

	switch cfg.DataBackend {
	case BackendMySQL:
		cfg.DB = DBConfig{
			User: must("DB_USER"),
			Pass: os.Getenv("DB_PASS"),
			Host: must("DB_HOST"),
			Port: envStr("DB_PORT", "3306"),
			Name: must("DB_NAME"),
		}
	case BackendMemory:
	default:
		missing = append(missing, fmt.Errorf("invalid DATA_BACKEND %q (want mysql or memory)", cfg.DataBackend))
	}
	if cfg.AccessTTL <= 0 {
		missing = append(missing, errors.New("ACCESS_TOKEN_TTL_MIN must be positive"))
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		missing = append(missing, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.Timezone, err))
	}
	if err := errors.Join(missing...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location returns the restaurant time zone.  Load has validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
