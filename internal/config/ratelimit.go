package config

import "time"

// RateLimitConfig drives the redis token bucket in front of the API.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string // ip, user, ip_user, ip_user_route
	Prefix         string

	// Borrow and return get their own, tighter bucket.
	MutationCapacity int
}

func LoadRateLimitConfig() RateLimitConfig {
	rl := RateLimitConfig{
		Enabled:          envBool("RATE_LIMIT_ENABLED", true),
		Capacity:         envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:     envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval:   envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:              envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:      envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:           envStr("RATE_LIMIT_PREFIX", "library-rl"),
		MutationCapacity: envInt("RATE_LIMIT_MUTATION_CAPACITY", 10),
	}
	if rl.Capacity < 1 {
		rl.Capacity = 1
	}
	if rl.MutationCapacity < 1 {
		rl.MutationCapacity = 1
	}
	if rl.RefillTokens < 1 {
		rl.RefillTokens = 1
	}
	if rl.RefillInterval <= 0 {
		rl.RefillInterval = time.Second
	}
	// keys must outlive a full refill cycle or buckets reset early
	if minTTL := 5 * rl.RefillInterval; rl.TTL < minTTL {
		rl.TTL = minTTL
	}
	return rl
}
