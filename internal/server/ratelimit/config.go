package ratelimit

import (
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// Worker fan-out and credit spend
		{Path: "/api/candidates/bulk-retry", Method: "POST", Limit: 10, Window: time.Minute},
		{Path: "/api/candidates/uploads", Method: "POST", Limit: 30, Window: time.Minute},
		{Path: "/api/positions/", Method: "POST", Limit: 20, Window: time.Minute},

		// Writes
		{Path: "/api/positions/", Method: "PATCH", Limit: 120, Window: time.Minute},
		{Path: "/api/saved-searches", Method: "POST", Limit: 30, Window: time.Minute},
		{Path: "/api/saved-searches/", Method: "PATCH", Limit: 60, Window: time.Minute},
		{Path: "/api/saved-searches/", Method: "DELETE", Limit: 60, Window: time.Minute},

		// Aggregates
		{Path: "/api/analytics/", Method: "GET", Limit: 60, Window: time.Minute},

		// Remaining reads use the default limit; /health is unlimited in the matcher.
	}
}

// ParseIPList parses a comma-separated list of IP addresses into a set.
func ParseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		ip = strings.TrimSpace(ip)
		if ip != "" {
			result[ip] = true
		}
	}
	return result
}
