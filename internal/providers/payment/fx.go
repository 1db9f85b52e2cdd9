package payment

import (
	"github.com/smallbiznis/printflow/internal/config"
	paymentdomain "github.com/smallbiznis/printflow/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.payment",
	fx.Provide(NewFromConfig),
)

// NewFromConfig returns a nil gateway when Mercado Pago is not configured;
// confirmations then rely on staff alone.
func NewFromConfig(cfg config.ProvidersConfig, log *zap.Logger) (paymentdomain.Gateway, error) {
	if !cfg.MercadoPago.Enabled() {
		log.Named("providers.payment").Info("mercado pago not configured, gateway checks disabled")
		return nil, nil
	}
	gateway, err := NewMercadoPagoGateway(cfg.MercadoPago.AccessToken)
	if err != nil {
		return nil, err
	}
	return gateway, nil
}
