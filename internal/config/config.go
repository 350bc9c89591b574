package config

import (
	"fmt"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultAppName        = "ABank"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultLoginAttempts  = 5
	defaultRedisPrefix    = "abank:"
	devSessionSecret      = "abank-development-secret"
)

// Config captures application runtime configuration loaded from the
// environment and an optional .env file.
type Config struct {
	AppName  string `validate:"required"`
	AppEnv   string `validate:"required"`
	Port     string `validate:"required"`
	LogLevel string `validate:"oneof=debug info warn error"`
	LogFile  string

	StoreDriver string `validate:"oneof=memory redis postgres"`
	StoreCache  bool
	DatabaseURL string `validate:"required_if=StoreDriver postgres"`
	RedisURL    string `validate:"required_if=StoreDriver redis"`
	RedisPrefix string

	SessionSecret          string        `validate:"required,min=16"`
	ShutdownPeriod         time.Duration `validate:"gt=0"`
	IdempotencyTTL         time.Duration `validate:"gt=0"`
	LoginAttemptsPerMinute int           `validate:"gte=1"`

	SeedDemo         bool
	SingleActiveCard bool
	BcryptCost       int `validate:"gte=4,lte=31"`

	SMTP SMTPConfig
}

// SMTPConfig enables e-mail transfer notifications when Host is set.
type SMTPConfig struct {
	Host     string
	Port     int `validate:"required_with=Host"`
	Username string
	Password string
	From     string `validate:"required_with=Host"`
}

// Load reads .env (when present), then environment variables, and validates
// the result.
func Load() (Config, error) {
	// a missing .env file is not an error
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("APP_NAME", defaultAppName)
	v.SetDefault("APP_ENV", defaultAppEnv)
	v.SetDefault("PORT", defaultPort)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("STORE_DRIVER", "memory")
	v.SetDefault("STORE_CACHE", false)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_PREFIX", defaultRedisPrefix)
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("SHUTDOWN_TIMEOUT", defaultShutdownDelay)
	v.SetDefault("IDEMPOTENCY_TTL", defaultIdempotencyTTL)
	v.SetDefault("LOGIN_ATTEMPTS_PER_MINUTE", defaultLoginAttempts)
	v.SetDefault("SEED_DEMO", true)
	v.SetDefault("CARDS_SINGLE_ACTIVE", true)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "")

	cfg := Config{
		AppName:                v.GetString("APP_NAME"),
		AppEnv:                 strings.ToLower(v.GetString("APP_ENV")),
		Port:                   v.GetString("PORT"),
		LogLevel:               strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFile:                v.GetString("LOG_FILE"),
		StoreDriver:            strings.ToLower(v.GetString("STORE_DRIVER")),
		StoreCache:             v.GetBool("STORE_CACHE"),
		DatabaseURL:            v.GetString("DATABASE_URL"),
		RedisURL:               v.GetString("REDIS_URL"),
		RedisPrefix:            v.GetString("REDIS_PREFIX"),
		SessionSecret:          v.GetString("SESSION_SECRET"),
		ShutdownPeriod:         v.GetDuration("SHUTDOWN_TIMEOUT"),
		IdempotencyTTL:         v.GetDuration("IDEMPOTENCY_TTL"),
		LoginAttemptsPerMinute: v.GetInt("LOGIN_ATTEMPTS_PER_MINUTE"),
		SeedDemo:               v.GetBool("SEED_DEMO"),
		SingleActiveCard:       v.GetBool("CARDS_SINGLE_ACTIVE"),
		BcryptCost:             v.GetInt("BCRYPT_COST"),
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
	}

	if cfg.SessionSecret == "" && cfg.IsDevelopment() {
		cfg.SessionSecret = devSessionSecret
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the app runs in a local/dev environment.
func (c Config) IsDevelopment() bool {
	switch c.AppEnv {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}
