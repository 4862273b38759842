package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig configures the Redis token bucket.  Checkout and payment
// routes get their own, stricter bucket (CheckoutCapacity) so a student
// retrying a failed payment cannot hammer the gateway.
type RateLimitConfig struct {
	Enabled          bool
	Capacity         int
	CheckoutCapacity int
	RefillTokens     int
	RefillInterval   time.Duration
	TTL              time.Duration
	KeyStrategy      string
	Prefix           string
	Debug            bool
}

func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:          envBool("RATE_LIMIT_ENABLED", true),
		Capacity:         envInt("RATE_LIMIT_CAPACITY", 60),
		CheckoutCapacity: envInt("RATE_LIMIT_CHECKOUT_CAPACITY", 5),
		RefillTokens:     envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval:   envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:              envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:      getenv("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:           getenv("RATE_LIMIT_PREFIX", "rl"),
		Debug:            envBool("RATE_LIMIT_DEBUG", false),
	}
	if b := envInt("RATE_LIMIT_BURST", -1); b > 0 {
		def.Capacity = b
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.CheckoutCapacity < 1 {
		def.CheckoutCapacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	// keys must outlive a full refill or buckets reset early
	if minTTL := 5 * def.RefillInterval; def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	return parseDur(v, d)
}
