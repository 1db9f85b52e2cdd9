package payment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mercadopago/sdk-go/pkg/config"
	mppayment "github.com/mercadopago/sdk-go/pkg/payment"
	paymentdomain "github.com/smallbiznis/printflow/internal/payment/domain"
)

type paymentLookup interface {
	Get(ctx context.Context, id int) (*mppayment.Response, error)
}

// MercadoPagoGateway reports the processor status of payments taken through
// Mercado Pago checkout.
type MercadoPagoGateway struct {
	client paymentLookup
}

func NewMercadoPagoGateway(accessToken string) (*MercadoPagoGateway, error) {
	cfg, err := config.New(accessToken)
	if err != nil {
		return nil, fmt.Errorf("mercadopago config: %w", err)
	}
	return &MercadoPagoGateway{client: mppayment.NewClient(cfg)}, nil
}

func (g *MercadoPagoGateway) PaymentStatus(ctx context.Context, providerRef string) (paymentdomain.GatewayStatus, error) {
	id, err := strconv.Atoi(strings.TrimSpace(providerRef))
	if err != nil {
		return "", fmt.Errorf("mercadopago: invalid payment reference %q", providerRef)
	}

	resp, err := g.client.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return mapStatus(resp.Status), nil
}

func mapStatus(status string) paymentdomain.GatewayStatus {
	switch strings.ToLower(status) {
	case "approved":
		return paymentdomain.GatewayApproved
	case "rejected", "refunded", "charged_back":
		return paymentdomain.GatewayRejected
	case "cancelled":
		return paymentdomain.GatewayCancelled
	default:
		// pending, in_process, authorized, in_mediation
		return paymentdomain.GatewayPending
	}
}
