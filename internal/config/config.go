package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the runtime settings of the accounts server.
type Config struct {
	HTTPAddr          string        `env:"ACCOUNTS_HTTP_ADDR"           envDefault:":8080"`
	DBPath            string        `env:"ACCOUNTS_DB_PATH"             envDefault:"./accounts.db"`
	RedisAddr         string        `env:"ACCOUNTS_REDIS_ADDR"          envDefault:"localhost:6379"`
	JWTSecret         string        `env:"ACCOUNTS_JWT_SECRET,required,notEmpty"`
	TokenTTL          time.Duration `env:"ACCOUNTS_TOKEN_TTL"           envDefault:"72h"`
	PasswordMinLength int           `env:"ACCOUNTS_PASSWORD_MIN_LENGTH" envDefault:"8"`
	OtelEndpoint      string        `env:"ACCOUNTS_OTEL_ENDPOINT"`
	OtelStdout        bool          `env:"ACCOUNTS_OTEL_STDOUT"         envDefault:"false"`
	LogLevel          string        `env:"ACCOUNTS_LOG_LEVEL"           envDefault:"info"`
	ServiceName       string        `env:"ACCOUNTS_SERVICE_NAME"        envDefault:"accounts"`
	ShutdownTimeout   time.Duration `env:"ACCOUNTS_SHUTDOWN_TIMEOUT"    envDefault:"5s"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PasswordMinLength < 1 {
		return Config{}, fmt.Errorf("password min length must be positive, got %d", cfg.PasswordMinLength)
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("token ttl must be positive, got %s", cfg.TokenTTL)
	}
	return cfg, nil
}
