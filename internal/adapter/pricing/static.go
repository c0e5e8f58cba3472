package pricing

import (
	"context"

	"github.com/quickbite/orderflow/internal/config"
	"github.com/quickbite/orderflow/internal/domain"
	"github.com/quickbite/orderflow/internal/interfaces"
)

// StaticPricer is the simplest pricing collaborator: configured flat fees.
// The delivery fee applies to delivery orders only.
type StaticPricer struct {
	deliveryFee float64
	serviceFee  float64
}

func NewStatic(cfg config.PricingConfig) *StaticPricer {
	return &StaticPricer{
		deliveryFee: cfg.DeliveryFee,
		serviceFee:  cfg.ServiceFee,
	}
}

func (p *StaticPricer) Quote(ctx context.Context, orderType domain.OrderType, items []domain.OrderItem) (interfaces.PriceQuote, error) {
	subtotal := 0.0
	for _, item := range items {
		subtotal += item.UnitPrice * float64(item.Quantity)
	}

	quote := interfaces.PriceQuote{
		Subtotal:   subtotal,
		ServiceFee: p.serviceFee,
	}
	if orderType == domain.OrderTypeDelivery {
		quote.DeliveryFee = p.deliveryFee
	}
	quote.Total = quote.Subtotal + quote.DeliveryFee + quote.ServiceFee

	return quote, nil
}
