package config

import "time"

// GatewayConfig selects and tunes the payment gateway.  Provider is "mock"
// (default) or "midtrans".
type GatewayConfig struct {
	Provider           string
	MobileMoneyDelay   time.Duration
	CardDelay          time.Duration
	Timeout            time.Duration
	MidtransServerKey  string
	MidtransProduction bool
}

func LoadGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Provider:           getenv("PAYMENT_GATEWAY", "mock"),
		MobileMoneyDelay:   envDur("GATEWAY_MOBILE_MONEY_DELAY", 3*time.Second),
		CardDelay:          envDur("GATEWAY_CARD_DELAY", 2*time.Second),
		Timeout:            envDur("GATEWAY_TIMEOUT", 10*time.Second),
		MidtransServerKey:  getenv("MIDTRANS_SERVER_KEY", ""),
		MidtransProduction: envBool("MIDTRANS_PRODUCTION", false),
	}
}
