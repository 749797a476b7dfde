package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string   `mapstructure:"PORT"`
	Env                 string   `mapstructure:"ENV"`
	DatabaseURL         string   `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32    `mapstructure:"DB_MIN_CONNS"`
	AllowMemoryStore    bool     `mapstructure:"ALLOW_MEMORY_STORE"`
	CORSOrigins         []string `mapstructure:"CORS_ORIGINS"`
	GeminiAPIKey        string   `mapstructure:"GEMINI_API_KEY"`
	GeminiModel         string   `mapstructure:"GEMINI_MODEL"`
	ClassifyTimeoutSecs int      `mapstructure:"CLASSIFY_TIMEOUT_SECS"`
	MapsAPIKey          string   `mapstructure:"MAPS_API_KEY"`
	IPInfoBaseURL       string   `mapstructure:"IPINFO_BASE_URL"`
	FacilityRadiusM     int      `mapstructure:"FACILITY_RADIUS_M"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "3000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("ALLOW_MEMORY_STORE", true)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("CLASSIFY_TIMEOUT_SECS", 15)
	v.SetDefault("IPINFO_BASE_URL", "https://ipinfo.io")
	v.SetDefault("FACILITY_RADIUS_M", 5000)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("ALLOW_MEMORY_STORE")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("GEMINI_API_KEY")
	v.BindEnv("GEMINI_MODEL")
	v.BindEnv("CLASSIFY_TIMEOUT_SECS")
	v.BindEnv("MAPS_API_KEY")
	v.BindEnv("IPINFO_BASE_URL")
	v.BindEnv("FACILITY_RADIUS_M")

	// Try reading .env, but don't fail if missing
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

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ClassifyTimeout returns the bound on a single classification call. Intake
// must never hang on the oracle, so a non-positive value falls back to the
// default rather than disabling the timeout.
func (c *Config) ClassifyTimeout() time.Duration {
	if c.ClassifyTimeoutSecs <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.ClassifyTimeoutSecs) * time.Second
}

// Validate checks that the configuration is safe to run. The in-memory store
// fallback is a development convenience; production must have a durable
// database unless the operator explicitly opts out.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && !c.AllowMemoryStore {
		return fmt.Errorf("DATABASE_URL is required when ALLOW_MEMORY_STORE is false")
	}
	if c.IsProduction() && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required in production; the in-memory store does not survive restarts")
	}
	if c.IsProduction() && c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required in production; without it every intake degrades to the default acuity")
	}
	return nil
}
