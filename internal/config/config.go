// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const devJWTSecret = "default_super_secret_key"

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBSSLMode    string
	Port         string
	GinMode      string
	JWTSecret    string
	CORSOrigins  []string
	BaseCurrency string
	PointsPrice  decimal.Decimal
	RateLimit    string
	AuditBuffer  int
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from the DB_* variables.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "backoffice")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("BASE_CURRENCY", "VND")
	v.SetDefault("POINTS_PRICE", "0")
	v.SetDefault("RATE_LIMIT", "300-M")
	v.SetDefault("AUDIT_BUFFER", 256)
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:  v.GetString("DATABASE_URL"),
		DBHost:       v.GetString("DB_HOST"),
		DBPort:       v.GetString("DB_PORT"),
		DBUser:       v.GetString("DB_USER"),
		DBPassword:   v.GetString("DB_PASSWORD"),
		DBName:       v.GetString("DB_NAME"),
		DBSSLMode:    v.GetString("DB_SSLMODE"),
		Port:         v.GetString("PORT"),
		GinMode:      v.GetString("GIN_MODE"),
		JWTSecret:    v.GetString("JWT_SECRET"),
		BaseCurrency: strings.ToUpper(strings.TrimSpace(v.GetString("BASE_CURRENCY"))),
		RateLimit:    v.GetString("RATE_LIMIT"),
		AuditBuffer:  v.GetInt("AUDIT_BUFFER"),
	}

	for _, origin := range strings.Split(v.GetString("CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	pointsPrice, err := decimal.NewFromString(strings.TrimSpace(v.GetString("POINTS_PRICE")))
	if err != nil {
		return nil, fmt.Errorf("invalid POINTS_PRICE: %w", err)
	}
	cfg.PointsPrice = pointsPrice

	if cfg.BaseCurrency == "" {
		return nil, fmt.Errorf("BASE_CURRENCY must not be empty")
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required in production mode")
		}
		slog.Warn("JWT_SECRET not set, using development fallback")
		cfg.JWTSecret = devJWTSecret
	}

	if cfg.AuditBuffer <= 0 {
		cfg.AuditBuffer = 256
	}

	return cfg, nil
}
