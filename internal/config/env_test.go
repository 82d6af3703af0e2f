package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE", "Memory")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", env.AppAddr)
	assert.Equal(t, "memory", env.Store)
	assert.Equal(t, 10*time.Minute, env.HoldDefaultTTL)
	assert.Equal(t, 6, env.HoldMaxSeats)
	assert.Equal(t, 2*time.Hour, env.BookingCancelLeadTime)
	assert.Zero(t, env.BookingPaymentDeadline)
	assert.Contains(t, env.CORSAllowedOrigins, "http://localhost:5173")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("HOLD_DEFAULT_TTL", "90s")
	t.Setenv("HOLD_MAX_SEATS", "4")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, env.HoldDefaultTTL)
	assert.Equal(t, 4, env.HoldMaxSeats)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, env.CORSAllowedOrigins)
}

func TestLoadEnvErrors(t *testing.T) {
	tests := map[string]map[string]string{
		"missing secret": {"JWT_SECRET": ""},
		"bad store":      {"JWT_SECRET": "x", "STORE": "postgres"},
		"bad duration":   {"JWT_SECRET": "x", "HOLD_MAX_TTL": "ten minutes"},
		"bad int":        {"JWT_SECRET": "x", "HOLD_SWEEP_BATCH": "many"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := LoadEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoadEnvBlankOriginsFallBack(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CORS_ALLOWED_ORIGINS", " , ,")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.NotEmpty(t, env.CORSAllowedOrigins)
	assert.Contains(t, env.CORSAllowedOrigins, "http://localhost:3000")
}
