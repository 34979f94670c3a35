// Package config provides configuration for the coaching orchestrator.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/peakform/coach/domain"
)

// Config holds the orchestrator configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Database
	DatabaseURL string

	// Completion provider
	ProviderURL     string
	ProviderAPIKey  string
	ProviderModel   string
	ProviderTimeout time.Duration

	// Routing
	// ForcedRoute overrides the heuristic when set to "direct" or
	// "tool_calling". Empty means heuristic routing.
	ForcedRoute string
	// AllowFallback permits one strategy retry after a recoverable
	// failure. Independent of ForcedRoute.
	AllowFallback bool
	// ToolCallMinChars is the input length at which direct generation is
	// pre-empted in favor of tool-calling.
	ToolCallMinChars int

	// Conversation history
	HistoryWindow int

	// Logging
	LogLevel string
}

// Load loads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:         getEnvInt("HTTP_PORT", 8080),
		DatabaseURL:      getEnv("DATABASE_URL", "file:coach.db?cache=shared&mode=rwc"),
		ProviderURL:      getEnv("PROVIDER_URL", "http://localhost:4000"),
		ProviderAPIKey:   getEnv("PROVIDER_API_KEY", ""),
		ProviderModel:    getEnv("PROVIDER_MODEL", "gpt-4o-mini"),
		ProviderTimeout:  time.Duration(getEnvInt("PROVIDER_TIMEOUT_MS", 120000)) * time.Millisecond,
		ForcedRoute:      getEnv("ROUTER_FORCED_ROUTE", ""),
		AllowFallback:    getEnvBool("ROUTER_ALLOW_FALLBACK", true),
		ToolCallMinChars: getEnvInt("ROUTER_TOOL_CALL_MIN_CHARS", 280),
		HistoryWindow:    getEnvInt("HISTORY_WINDOW", 12),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	// Only the two executable routes may be forced; anything else falls
	// back to heuristic routing instead of silently picking a route.
	switch cfg.ForcedRoute {
	case "", string(domain.RouteDirect), string(domain.RouteToolCalling):
	default:
		log.Printf("WARN: unknown ROUTER_FORCED_ROUTE %q, using heuristic routing", cfg.ForcedRoute)
		cfg.ForcedRoute = ""
	}

	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}
