package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string        `mapstructure:"PORT"`
	Env           string        `mapstructure:"ENV"`
	DatabaseURL   string        `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32         `mapstructure:"DB_MIN_CONNS"`
	JWTSigningKey string        `mapstructure:"JWT_SIGNING_KEY"`
	AuthIssuer    string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience  string        `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins   []string      `mapstructure:"CORS_ORIGINS"`
	BodyLimit     string        `mapstructure:"BODY_LIMIT"`
	MigrationsDir string        `mapstructure:"MIGRATIONS_DIR"`
	CancelWindow  time.Duration `mapstructure:"CANCEL_WINDOW"`
	SlotFirstHour int           `mapstructure:"SLOT_FIRST_HOUR"`
	SlotLastHour  int           `mapstructure:"SLOT_LAST_HOUR"`
	TxMaxRetries  int           `mapstructure:"TX_MAX_RETRIES"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("CANCEL_WINDOW", "2h")
	v.SetDefault("SLOT_FIRST_HOUR", 8)
	v.SetDefault("SLOT_LAST_HOUR", 17)
	v.SetDefault("TX_MAX_RETRIES", 3)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SIGNING_KEY")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("BODY_LIMIT")
	v.BindEnv("MIGRATIONS_DIR")
	v.BindEnv("CANCEL_WINDOW")
	v.BindEnv("SLOT_FIRST_HOUR")
	v.BindEnv("SLOT_LAST_HOUR")
	v.BindEnv("TX_MAX_RETRIES")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: requests without a bearer token are treated as an admin actor.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Outside development a
// signing key of at least 32 bytes is required so bearer tokens are verified.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	if c.JWTSigningKey != "" && len(c.JWTSigningKey) < 32 {
		return fmt.Errorf("JWT_SIGNING_KEY must be at least 32 bytes, got %d", len(c.JWTSigningKey))
	}
	if c.CancelWindow < 0 {
		return fmt.Errorf("CANCEL_WINDOW must not be negative, got %s", c.CancelWindow)
	}
	if c.SlotFirstHour < 0 || c.SlotLastHour > 23 || c.SlotFirstHour > c.SlotLastHour {
		return fmt.Errorf("slot hours must satisfy 0 <= SLOT_FIRST_HOUR <= SLOT_LAST_HOUR <= 23, got %d..%d",
			c.SlotFirstHour, c.SlotLastHour)
	}
	if c.TxMaxRetries < 0 {
		return fmt.Errorf("TX_MAX_RETRIES must not be negative, got %d", c.TxMaxRetries)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
