package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"farmerconnect/utils"

	"github.com/joho/godotenv"
)

const devJWTSecret = "farmerconnect-dev-secret"

// Config holds every runtime setting of the API
type Config struct {
	Port            string
	DatabaseURL     string
	JWTSecret       string
	JWTTTL          time.Duration
	RedisURL        string
	GeminiAPIKey    string
	GeminiModel     string
	GeminiBaseURL   string
	GeminiVersion   string
	AITimeout       time.Duration
	AIMaxHistory    int
	UploadDir       string
	CORSOrigins     []string
	BidMinIncrement float64
	RateLimitRPS    float64
	RateLimitBurst  int
	SeedDemoData    bool
	LogLevel        string
	ShutdownTimeout time.Duration
}

// Load reads .env (if present) and the process environment
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		utils.Warn("config: could not read .env", map[string]any{"error": err.Error()})
	}

	cfg := Config{
		Port:            getString("PORT", "8080"),
		DatabaseURL:     getString("DATABASE_URL", ""),
		JWTSecret:       getString("JWT_SECRET", devJWTSecret),
		JWTTTL:          getDuration("JWT_TTL", 72*time.Hour),
		RedisURL:        getString("REDIS_URL", ""),
		GeminiAPIKey:    getString("GEMINI_API_KEY", ""),
		GeminiModel:     getString("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:   strings.TrimRight(getString("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"), "/") + "/",
		GeminiVersion:   getString("GEMINI_API_VERSION", "v1beta"),
		AITimeout:       getDuration("AI_TIMEOUT", 30*time.Second),
		AIMaxHistory:    getInt("AI_MAX_HISTORY", 20),
		UploadDir:       getString("UPLOAD_DIR", "./uploads"),
		CORSOrigins:     splitList(getString("CORS_ORIGINS", "*")),
		BidMinIncrement: getFloat("BID_MIN_INCREMENT", 1.0),
		RateLimitRPS:    getFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:  getInt("RATE_LIMIT_BURST", 10),
		SeedDemoData:    getBool("SEED_DEMO_DATA", true),
		LogLevel:        getString("LOG_LEVEL", "info"),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if cfg.JWTSecret == devJWTSecret {
		utils.Warn("config: JWT_SECRET not set, using development secret", nil)
	}
	return cfg
}

// Addr returns the listen address for the HTTP server
func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

func getString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getInt(key string, def int) int {
	raw := getString(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		warnInvalid(key, raw)
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	raw := getString(key, "")
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		warnInvalid(key, raw)
		return def
	}
	return f
}

func getBool(key string, def bool) bool {
	raw := getString(key, "")
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		warnInvalid(key, raw)
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := getString(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		warnInvalid(key, raw)
		return def
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func warnInvalid(key, raw string) {
	utils.Warn("config: invalid value, using default", map[string]any{"key": key, "value": raw})
}
