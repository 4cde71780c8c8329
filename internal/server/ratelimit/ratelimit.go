// Package ratelimit implements fixed-window request limiting over a pluggable counter store.
package ratelimit

import (
	"context"
	"time"
)

// Options are the parameters of one limit.
type Options struct {
	Limit  int
	Window time.Duration
}

// Result is the outcome of one check.
type Result struct {
	Success   bool
	Remaining int
	Limit     int
	Reset     time.Time
}

// CheckRateLimit records a hit for id and reports whether it is within opts.Limit.
// A limit of zero or less is unlimited and does not touch the store.
func CheckRateLimit(ctx context.Context, store Store, id string, opts Options) (Result, error) {
	if opts.Limit <= 0 {
		return Result{Success: true}, nil
	}

	count, resetAt, err := store.Increment(ctx, id, opts.Window)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Success:   count <= opts.Limit,
		Remaining: max(0, opts.Limit-count),
		Limit:     opts.Limit,
		Reset:     resetAt,
	}, nil
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// Decision is what the Limiter tells the middleware.
type Decision struct {
	Result
	// Limited is false for disabled, whitelisted and unlimited requests; no headers are set.
	Limited bool
	// Blocked is set for blacklisted clients.
	Blocked bool
	// Rule is the matched rule path, or "default".
	Rule string
}

// Limiter applies Config to requests.
type Limiter struct {
	config *Config
	store  Store
}

// NewLimiter creates a Limiter. A nil config gets a 1000/minute default; a nil store is
// replaced with a MemoryStore.
func NewLimiter(config *Config, store Store) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:       true,
			DefaultLimit:  1000,
			DefaultWindow: time.Minute,
		}
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Limiter{config: config, store: store}
}

// Allow checks a request from clientID against the matching endpoint rule.
func (l *Limiter) Allow(ctx context.Context, clientID, path, method string) (Decision, error) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return Decision{Result: Result{Success: true}}, nil
	}
	if l.config.Blacklist[clientID] {
		return Decision{Blocked: true}, nil
	}

	rule := MatchEndpoint(path, method, l.config.EndpointConfigs)
	if rule == nil {
		rule = &EndpointConfig{Path: "default", Limit: l.config.DefaultLimit, Window: l.config.DefaultWindow}
	}
	if rule.Limit <= 0 {
		return Decision{Result: Result{Success: true}}, nil
	}

	// Prefix rules share one counter across the paths they cover.
	key := clientID + ":" + method + ":" + rule.Path
	res, err := CheckRateLimit(ctx, l.store, key, Options{Limit: rule.Limit, Window: rule.Window})
	if err != nil {
		return Decision{}, err
	}
	return Decision{Result: res, Limited: true, Rule: rule.Path}, nil
}
