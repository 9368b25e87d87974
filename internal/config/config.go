package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string   `mapstructure:"PORT"`
	Env               string   `mapstructure:"ENV"`
	DatabaseURL       string   `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32    `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer        string   `mapstructure:"AUTH_ISSUER"`
	AuthAudience      string   `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey    string   `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins       []string `mapstructure:"CORS_ORIGINS"`
	AutosaveSeconds   int      `mapstructure:"AUTOSAVE_INTERVAL_SECONDS"`
	SeedTemplatesFile string   `mapstructure:"SEED_TEMPLATES_FILE"`
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
	v.SetDefault("AUTOSAVE_INTERVAL_SECONDS", 30)
	v.SetDefault("SEED_TEMPLATES_FILE", "./seed/templates.yaml")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AUTOSAVE_INTERVAL_SECONDS")
	v.BindEnv("SEED_TEMPLATES_FILE")

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

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// AutosaveInterval returns the autosave tick period for draft note sessions.
func (c *Config) AutosaveInterval() time.Duration {
	secs := c.AutosaveSeconds
	if secs <= 0 {
		secs = 30
	}
	return time.Duration(secs) * time.Second
}

// Validate checks that the configuration is safe to run. Outside development
// mode a real token verification source must be configured so that requests
// carry an authenticated practitioner identity.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthIssuer == "" && c.AuthSigningKey == "" {
		return fmt.Errorf(
			"AUTH_ISSUER or AUTH_SIGNING_KEY must be set when ENV=%q; "+
				"refusing to start without authentication configuration", c.Env)
	}
	if c.AutosaveSeconds < 0 {
		return fmt.Errorf("AUTOSAVE_INTERVAL_SECONDS must not be negative, got %d", c.AutosaveSeconds)
	}
	return nil
}
