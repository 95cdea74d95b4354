package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every setting the service reads from the environment.
type Config struct {
	Server    ServerConfig
	AI        AIConfig
	RateLimit RateLimitConfig
	Gate      GateConfig
	Redis     RedisConfig
	Store     StoreConfig
}

// Load parses the full configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	rateLimit, err := loadRateLimitConfig()
	if err != nil {
		return nil, err
	}

	gate, err := loadGateConfig()
	if err != nil {
		return nil, err
	}

	redisCfg, err := loadRedisConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		AI:        ai,
		RateLimit: rateLimit,
		Gate:      gate,
		Redis:     redisCfg,
		Store:     loadStoreConfig(),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the Gemini client. The generation knobs are optional
// overrides; the service ships conservative defaults.
type AIConfig struct {
	APIKey          string
	Model           string
	Temperature     *float64
	TopP            *float64
	TopK            *int
	MaxOutputTokens *int
}

// Enabled reports whether the required credential is present.
func (c AIConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("GEMINI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("GEMINI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	topK, err := parseOptionalIntEnv("GEMINI_TOP_K")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("GEMINI_MAX_OUTPUT_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:          strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:           getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		Temperature:     temperature,
		TopP:            topP,
		TopK:            topK,
		MaxOutputTokens: maxTokens,
	}, nil
}

// RateLimitConfig bounds messages per identity within a trailing window.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

func loadRateLimitConfig() (RateLimitConfig, error) {
	maxRequests := 20
	if override, err := parseOptionalIntEnv("RATE_LIMIT_MAX"); err != nil {
		return RateLimitConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return RateLimitConfig{}, fmt.Errorf("RATE_LIMIT_MAX must be at least 1, got %d", *override)
		}
		maxRequests = *override
	}

	windowMinutes := 60
	if override, err := parseOptionalIntEnv("RATE_LIMIT_WINDOW_MINUTES"); err != nil {
		return RateLimitConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return RateLimitConfig{}, fmt.Errorf("RATE_LIMIT_WINDOW_MINUTES must be at least 1, got %d", *override)
		}
		windowMinutes = *override
	}

	return RateLimitConfig{
		MaxRequests: maxRequests,
		Window:      time.Duration(windowMinutes) * time.Minute,
	}, nil
}

// GateConfig holds the partner-inactivity precondition.
type GateConfig struct {
	InactivityThreshold time.Duration
}

func loadGateConfig() (GateConfig, error) {
	minutes := 10
	if override, err := parseOptionalIntEnv("INACTIVITY_THRESHOLD_MINUTES"); err != nil {
		return GateConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return GateConfig{}, fmt.Errorf("INACTIVITY_THRESHOLD_MINUTES must be at least 1, got %d", *override)
		}
		minutes = *override
	}
	return GateConfig{InactivityThreshold: time.Duration(minutes) * time.Minute}, nil
}

// RedisConfig selects the shared rate-limiter backend. When Addr is empty the
// limiter stays in-process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

func loadRedisConfig() (RedisConfig, error) {
	db := 0
	if override, err := parseOptionalIntEnv("REDIS_DB"); err != nil {
		return RedisConfig{}, err
	} else if override != nil {
		db = *override
	}
	return RedisConfig{
		Addr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

// StoreConfig selects the record-store backend. When DBPath is empty an
// in-memory store with demo seed data is used.
type StoreConfig struct {
	DBPath string
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{DBPath: strings.TrimSpace(os.Getenv("COMPANION_DB"))}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
