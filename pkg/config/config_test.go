package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 10, cfg.Listing.JobsLimit)
	assert.Equal(t, 12, cfg.Listing.ProductsLimit)
	assert.Equal(t, 100, cfg.Listing.MaxLimit)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Empty(t, cfg.Admin.RegistrationCode)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("JWT_EXPIRATION", "2h")
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	v.Set("ASSISTANT_TIMEOUT", "not-a-duration")

	cfg := fromViper(v)
	assert.Equal(t, 2*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 15*time.Second, cfg.Assistant.Timeout)
}

func TestValidateProduction(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)
	assert.NoError(t, cfg.Validate())

	cfg.Env = EnvProduction
	assert.Error(t, cfg.Validate())

	cfg.JWT.Secret = "a-long-random-secret"
	assert.NoError(t, cfg.Validate())

	cfg.Assistant.Enabled = true
	assert.Error(t, cfg.Validate())
}
