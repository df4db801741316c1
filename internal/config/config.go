package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Voting       VotingConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `env:"APP_NAME" env-default:"poll-service"`
	Env                   string `env:"APP_ENV" env-default:"development"`
	Host                  string `env:"APP_HOST" env-default:"0.0.0.0"`
	Port                  string `env:"APP_PORT" env-default:"8080"`
	Version               string `env:"APP_VERSION" env-default:"dev"`
	RequestTimeoutSeconds int    `env:"HTTP_REQUEST_TIMEOUT_SECONDS" env-default:"30"`
	Timezone              string `env:"TIMEZONE" env-default:"UTC"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string `env:"POSTGRES_DSN"`
	MaxConns       int32  `env:"POSTGRES_MAX_CONNS" env-default:"10"`
	MinConns       int32  `env:"POSTGRES_MIN_CONNS" env-default:"2"`
	RunMigrations  bool   `env:"POSTGRES_RUN_MIGRATIONS" env-default:"true"`
	MigrationsDir  string `env:"POSTGRES_MIGRATIONS_DIR" env-default:"migrations"`
	MaxRetries     int    `env:"POSTGRES_MAX_RETRIES" env-default:"3"`
	ConnMaxIdleSec int32  `env:"POSTGRES_CONN_MAX_IDLE_SECONDS" env-default:"30"`
	ConnMaxLifeSec int32  `env:"POSTGRES_CONN_MAX_LIFE_SECONDS" env-default:"300"`
}

// RedisConfig holds Redis connection values. An empty address disables Redis.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:"127.0.0.1:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string `env:"AUTH_JWT_SECRET" env-default:"dev-secret"`
	AccessTokenTTLMinutes int    `env:"AUTH_ACCESS_TOKEN_TTL_MINUTES" env-default:"60"`
	BcryptCost            int    `env:"AUTH_BCRYPT_COST" env-default:"12"`
	OwnerEmail            string `env:"AUTH_OWNER_EMAIL"`
	OwnerPassword         string `env:"AUTH_OWNER_PASSWORD"`
	OwnerName             string `env:"AUTH_OWNER_NAME" env-default:"Owner"`
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string `env:"NOTIFY_EMAIL_FROM" env-default:"noreply@example.com"`
	WebhookURL string `env:"NOTIFY_WEBHOOK_URL"`
}

// VotingConfig tunes vote submission.
type VotingConfig struct {
	GuardTTLSeconds int `env:"VOTE_GUARD_TTL_SECONDS" env-default:"5"`
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if _, err := cfg.App.Location(); err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	return &cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Location resolves the timezone poll end dates are evaluated in.
func (a AppConfig) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(a.Timezone)
}

// GuardTTL returns how long a vote guard key lives.
func (v VotingConfig) GuardTTL() time.Duration {
	if v.GuardTTLSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(v.GuardTTLSeconds) * time.Second
}
