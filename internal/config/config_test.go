package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_URL", "JWT_TTL", "AI_MAX_HISTORY", "CORS_ORIGINS", "BID_MIN_INCREMENT", "SEED_DEMO_DATA", "GEMINI_MODEL", "GEMINI_BASE_URL", "GEMINI_API_VERSION"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, ":8080", cfg.Addr())
	require.Empty(t, cfg.DatabaseURL)
	require.Equal(t, 72*time.Hour, cfg.JWTTTL)
	require.Equal(t, 20, cfg.AIMaxHistory)
	require.Equal(t, []string{"*"}, cfg.CORSOrigins)
	require.Equal(t, 1.0, cfg.BidMinIncrement)
	require.True(t, cfg.SeedDemoData)
	require.Equal(t, "gemini-1.5-flash", cfg.GeminiModel)
	require.Equal(t, "https://generativelanguage.googleapis.com/", cfg.GeminiBaseURL)
	require.Equal(t, "v1beta", cfg.GeminiVersion)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("CORS_ORIGINS", "http://localhost:5173, https://farmerconnect.in")
	t.Setenv("BID_MIN_INCREMENT", "2.5")
	t.Setenv("SEED_DEMO_DATA", "false")
	t.Setenv("GEMINI_BASE_URL", "http://localhost:9999//")
	t.Setenv("GEMINI_API_VERSION", "v1")

	cfg := Load()
	require.Equal(t, ":9090", cfg.Addr())
	require.Equal(t, time.Hour, cfg.JWTTTL)
	require.Equal(t, []string{"http://localhost:5173", "https://farmerconnect.in"}, cfg.CORSOrigins)
	require.Equal(t, 2.5, cfg.BidMinIncrement)
	require.False(t, cfg.SeedDemoData)
	require.Equal(t, "http://localhost:9999/", cfg.GeminiBaseURL)
	require.Equal(t, "v1", cfg.GeminiVersion)
}

func TestLoad_InvalidFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(t *testing.T, cfg Config)
	}{
		{name: "bad_duration", key: "AI_TIMEOUT", value: "soon", check: func(t *testing.T, cfg Config) { require.Equal(t, 30*time.Second, cfg.AITimeout) }},
		{name: "negative_int", key: "RATE_LIMIT_BURST", value: "-3", check: func(t *testing.T, cfg Config) { require.Equal(t, 10, cfg.RateLimitBurst) }},
		{name: "bad_float", key: "RATE_LIMIT_RPS", value: "fast", check: func(t *testing.T, cfg Config) { require.Equal(t, 5.0, cfg.RateLimitRPS) }},
		{name: "bad_bool", key: "SEED_DEMO_DATA", value: "maybe", check: func(t *testing.T, cfg Config) { require.True(t, cfg.SeedDemoData) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			tc.check(t, Load())
		})
	}
}
