package config

import (
	"testing"
	"time"
)

func TestLoadRateLimitConfigClampsValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_BURST", "")

	c := LoadRateLimitConfig()
	if c.Capacity != 1 {
		t.Fatalf("capacity = %d, want 1", c.Capacity)
	}
	if c.TTL != 10*time.Second {
		t.Fatalf("ttl = %s, want 10s", c.TTL)
	}
}

func TestLoadGatewayConfigDefaults(t *testing.T) {
	t.Setenv("PAYMENT_GATEWAY", "")
	t.Setenv("GATEWAY_MOBILE_MONEY_DELAY", "")
	t.Setenv("GATEWAY_CARD_DELAY", "250ms")

	c := LoadGatewayConfig()
	if c.Provider != "mock" {
		t.Fatalf("provider = %q", c.Provider)
	}
	if c.MobileMoneyDelay != 3*time.Second {
		t.Fatalf("mobile money delay = %s", c.MobileMoneyDelay)
	}
	if c.CardDelay != 250*time.Millisecond {
		t.Fatalf("card delay = %s", c.CardDelay)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "yes")
	t.Setenv("X_INT", "nope")
	if !envBool("X_BOOL", false) {
		t.Error("yes should parse as true")
	}
	if envInt("X_INT", 7) != 7 {
		t.Error("bad int should fall back to default")
	}
	got := splitList(" http://a.test , ,http://b.test")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Errorf("splitList = %v", got)
	}
	if m := parseMethods("get, head"); !m["GET"] || !m["HEAD"] {
		t.Errorf("parseMethods = %v", m)
	}
}
