package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(values map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(newViper(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "VND", cfg.BaseCurrency)
	assert.True(t, cfg.PointsPrice.IsZero())
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, 256, cfg.AuditBuffer)
	assert.Contains(t, cfg.DSN(), "dbname=backoffice")
}

func TestFromViper_Overrides(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]any{
		"DATABASE_URL":  "postgres://u:p@db:5432/app",
		"BASE_CURRENCY": " usd ",
		"POINTS_PRICE":  "10000",
		"CORS_ORIGINS":  "https://a.example, https://b.example",
		"JWT_SECRET":    "s3cret",
	}))
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db:5432/app", cfg.DSN())
	assert.Equal(t, "USD", cfg.BaseCurrency)
	assert.True(t, decimal.NewFromInt(10000).Equal(cfg.PointsPrice))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestFromViper_InvalidPointsPrice(t *testing.T) {
	_, err := fromViper(newViper(map[string]any{"POINTS_PRICE": "abc"}))
	assert.Error(t, err)
}

func TestFromViper_ReleaseRequiresSecret(t *testing.T) {
	_, err := fromViper(newViper(map[string]any{"GIN_MODE": "release"}))
	assert.Error(t, err)
}
