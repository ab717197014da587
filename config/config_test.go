package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadWith(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, 9, cfg.Cafeteria.OpenHour)
	assert.Equal(t, 18, cfg.Cafeteria.CloseHour)
	assert.Equal(t, 15, cfg.Cafeteria.SlotMinutes)
	assert.Equal(t, 20, cfg.Cafeteria.SlotCapacity)
	assert.Equal(t, "inr", cfg.Stripe.Currency)
	assert.Equal(t, int64(5000), cfg.Stripe.MinimumAmount)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.False(t, cfg.Server.IsProduction())
}

func TestLoadLegacyEnvNames(t *testing.T) {
	t.Setenv("SLOT_CAPACITY", "7")
	t.Setenv("PORT", "8081")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_x")
	t.Setenv("FRONTEND_ORIGIN", "https://eats.example.com")

	cfg, err := LoadWith(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Cafeteria.SlotCapacity)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "sk_test_x", cfg.Stripe.SecretKey)
	assert.Equal(t, "https://eats.example.com", cfg.Server.FrontendOrigin)
}

func TestLoadNestedEnvNames(t *testing.T) {
	t.Setenv("CAFETERIA_OPEN_HOUR", "8")
	t.Setenv("CAFETERIA_TIMEZONE", "Asia/Kolkata")

	cfg, err := LoadWith(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Cafeteria.OpenHour)
	assert.Equal(t, "Asia/Kolkata", cfg.Cafeteria.TimeZone)
}

func TestProductionRequiresSecrets(t *testing.T) {
	t.Setenv("NODE_ENV", "production")
	_, err := LoadWith(viper.New())
	require.Error(t, err)

	t.Setenv("ACCESS_TOKEN_SECRET", "a-real-secret")
	t.Setenv("REFRESH_TOKEN_SECRET", "another-real-secret")
	cfg, err := LoadWith(viper.New())
	require.NoError(t, err)
	assert.True(t, cfg.Server.IsProduction())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Cafeteria: CafeteriaConfig{OpenHour: 9, CloseHour: 18, SlotMinutes: 15, SlotCapacity: 20}}
	}
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"open after close", func(c *Config) { c.Cafeteria.OpenHour = 19 }, true},
		{"close past midnight", func(c *Config) { c.Cafeteria.CloseHour = 25 }, true},
		{"zero slot length", func(c *Config) { c.Cafeteria.SlotMinutes = 0 }, true},
		{"zero capacity", func(c *Config) { c.Cafeteria.SlotCapacity = 0 }, true},
		{"full day", func(c *Config) { c.Cafeteria.OpenHour, c.Cafeteria.CloseHour = 0, 24 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
