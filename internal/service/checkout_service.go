package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/giftlink/internal/model"
	"github.com/fairyhunter13/giftlink/internal/payment"
)

// CheckoutService charges the sender and only then creates the order.
type CheckoutService struct {
	factory  *OrderFactory
	payments payment.Provider
}

// NewCheckoutService creates a CheckoutService.
func NewCheckoutService(factory *OrderFactory, payments payment.Provider) *CheckoutService {
	return &CheckoutService{factory: factory, payments: payments}
}

// Purchase validates the request, captures payment for the order's nominal
// amount and persists the order. A declined payment returns ErrPaymentFailed
// and creates nothing.
func (s *CheckoutService) Purchase(ctx context.Context, req *model.CreateOrderRequest) (*model.GiftOrder, error) {
	order, err := s.factory.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	res, err := s.payments.Pay(ctx, payment.Request{
		Amount:   order.Amount,
		Currency: order.Currency,
		Metadata: map[string]string{
			"merchant_id": order.MerchantID,
			"gift_type":   string(order.GiftType),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pay: %w", err)
	}
	if !res.Success {
		log.Warn().
			Str("merchant_id", order.MerchantID).
			Str("reason", res.ErrorMessage).
			Msg("payment declined")
		return nil, fmt.Errorf("%w: %s", ErrPaymentFailed, res.ErrorMessage)
	}

	created, err := s.factory.Persist(ctx, order)
	if err != nil {
		log.Error().
			Err(err).
			Str("provider_payment_id", res.ProviderPaymentID).
			Msg("payment captured but order was not persisted")
		return nil, err
	}
	log.Info().
		Str("order_id", created.ID).
		Str("provider_payment_id", res.ProviderPaymentID).
		Msg("checkout completed")
	return created, nil
}
