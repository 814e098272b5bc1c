package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// EndpointConfig is the limit for one endpoint.
type EndpointConfig struct {
	Path   string     // Endpoint path pattern (a trailing "/" matches by prefix)
	Method string     // HTTP method
	Rate   rate.Limit // Sustained requests per second; 0 is unlimited
	Burst  int        // Bucket capacity
}

// PerWindow converts "limit requests per window" to a rate
func PerWindow(limit int, window time.Duration) rate.Limit {
	if limit <= 0 || window <= 0 {
		return 0
	}
	return rate.Limit(float64(limit) / window.Seconds())
}

// DefaultConfig allows 1000 requests per minute per client on every endpoint
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		DefaultRate:     PerWindow(1000, time.Minute),
		DefaultBurst:    1000,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Whitelist:       map[string]bool{},
		Blacklist:       map[string]bool{},
	}
}

// LoadConfig builds the limiter configuration. optimizeRate and optimizeBurst
// bound the optimization endpoints, the rest comes from RATE_LIMIT_* variables.
func LoadConfig(optimizeRate float64, optimizeBurst int) *Config {
	if !getEnvBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	defaultLimit := getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", 1000)
	defaultWindow := getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute)

	return &Config{
		Enabled:         true,
		DefaultRate:     PerWindow(defaultLimit, defaultWindow),
		DefaultBurst:    defaultLimit,
		CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleTTL:         time.Hour,
		Whitelist:       parseIPList(getEnvString("RATE_LIMIT_WHITELIST", "")),
		Blacklist:       parseIPList(getEnvString("RATE_LIMIT_BLACKLIST", "")),
		EndpointConfigs: DefaultEndpointConfigs(rate.Limit(optimizeRate), optimizeBurst),
	}
}

// DefaultEndpointConfigs returns the endpoint-specific limits.
func DefaultEndpointConfigs(optimizeRate rate.Limit, optimizeBurst int) []EndpointConfig {
	return []EndpointConfig{
		// Optimization runs an LLM, a search and several compiles
		{Path: "/resumes/optimize", Method: "POST", Rate: optimizeRate, Burst: optimizeBurst},
		{Path: "/resumes/optimize/stream", Method: "POST", Rate: optimizeRate, Burst: optimizeBurst},

		{Path: "/resumes/", Method: "DELETE", Rate: PerWindow(100, time.Minute), Burst: 10},
	}
}

func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
