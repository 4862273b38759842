package gateway

import (
	"fmt"
	"strings"

	"github.com/bookmyhostel/hostel-api/internal/config"
)

// New picks the gateway named by cfg.Provider.
func New(cfg config.GatewayConfig) (PaymentGateway, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "mock":
		return NewMockGateway(cfg.MobileMoneyDelay, cfg.CardDelay), nil
	case "midtrans":
		if cfg.MidtransServerKey == "" {
			return nil, fmt.Errorf("gateway: MIDTRANS_SERVER_KEY is required for the midtrans provider")
		}
		return NewMidtransGateway(cfg.MidtransServerKey, cfg.MidtransProduction), nil
	}
	return nil, fmt.Errorf("gateway: unknown provider %q", cfg.Provider)
}
