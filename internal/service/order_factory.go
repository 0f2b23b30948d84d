package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/giftlink/internal/model"
)

// DefaultCodeAttempts bounds redeem code regeneration on collisions.
const DefaultCodeAttempts = 8

// OrderFactory validates creation input and materializes new gift orders.
type OrderFactory struct {
	store       OrderStore
	merchants   MerchantLookup
	products    ProductLookup
	codes       CodeGenerator
	metrics     MetricsRecorder
	maxAttempts int
	now         func() time.Time
}

// NewOrderFactory creates an OrderFactory. maxAttempts <= 0 uses DefaultCodeAttempts.
func NewOrderFactory(store OrderStore, merchants MerchantLookup, products ProductLookup, codes CodeGenerator, metrics MetricsRecorder, maxAttempts int) *OrderFactory {
	if maxAttempts <= 0 {
		maxAttempts = DefaultCodeAttempts
	}
	return &OrderFactory{
		store:       store,
		merchants:   merchants,
		products:    products,
		codes:       codes,
		metrics:     metricsOrNoop(metrics),
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Create validates req and persists a new PAID order.
// Payment is assumed to have been captured by the caller.
func (f *OrderFactory) Create(ctx context.Context, req *model.CreateOrderRequest) (*model.GiftOrder, error) {
	order, err := f.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return f.Persist(ctx, order)
}

// Prepare validates req against the catalog and returns an unsaved order
// without identifiers. Checks run in order and fail on the first violation.
func (f *OrderFactory) Prepare(ctx context.Context, req *model.CreateOrderRequest) (*model.GiftOrder, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	giftType := req.GiftType
	if giftType == "" {
		giftType = model.GiftTypeItem
	}
	if !giftType.IsValid() {
		return nil, fmt.Errorf("%w: unknown gift type %q", ErrInvalidRequest, giftType)
	}
	switch req.DeliveryChannel {
	case model.DeliveryWhatsApp, model.DeliverySMS, model.DeliveryEmail:
	default:
		return nil, fmt.Errorf("%w: unknown delivery channel %q", ErrInvalidRequest, req.DeliveryChannel)
	}

	order := &model.GiftOrder{
		GiftType:        giftType,
		MerchantID:      strings.TrimSpace(req.MerchantID),
		SenderName:      strings.TrimSpace(req.SenderName),
		ReceiverName:    strings.TrimSpace(req.ReceiverName),
		ReceiverContact: strings.TrimSpace(req.ReceiverContact),
		DeliveryChannel: req.DeliveryChannel,
		Message:         strings.TrimSpace(req.Message),
		ThemeID:         strings.TrimSpace(req.ThemeID),
		ScheduledSendAt: req.ScheduledSendAt,
	}
	if order.SenderName == "" || order.ReceiverName == "" || order.ReceiverContact == "" ||
		order.Message == "" || order.MerchantID == "" {
		return nil, ErrInvalidRequest
	}
	if order.ThemeID == "" {
		order.ThemeID = model.DefaultThemeID
	}

	merchant, err := f.merchants.GetMerchant(ctx, order.MerchantID)
	if err != nil {
		return nil, fmt.Errorf("get merchant: %w", err)
	}
	if merchant == nil {
		return nil, ErrMerchantNotFound
	}

	if giftType == model.GiftTypeCredit {
		if err := f.applyCredit(order, merchant, req.CreditAmount); err != nil {
			return nil, err
		}
		return order, nil
	}
	if err := f.applyItem(ctx, order, req.ProductID); err != nil {
		return nil, err
	}
	return order, nil
}

func (f *OrderFactory) applyCredit(order *model.GiftOrder, merchant *model.Merchant, amount *int64) error {
	if !merchant.CreditIsEnabled {
		return ErrCreditDisabled
	}
	if amount == nil || *amount <= 0 {
		return ErrInvalidAmount
	}
	if merchant.CreditMinAmount > 0 && *amount < merchant.CreditMinAmount {
		return ErrAmountOutOfRange
	}
	if merchant.CreditMaxAmount > 0 && *amount > merchant.CreditMaxAmount {
		return ErrAmountOutOfRange
	}

	credit, remaining := *amount, *amount
	order.Amount = decimal.NewFromInt(credit)
	order.Currency = model.CreditCurrency
	order.CreditAmount = &credit
	order.CreditRemaining = &remaining
	return nil
}

func (f *OrderFactory) applyItem(ctx context.Context, order *model.GiftOrder, productID *string) error {
	if productID == nil || strings.TrimSpace(*productID) == "" {
		return ErrProductRequired
	}
	product, err := f.products.GetProduct(ctx, strings.TrimSpace(*productID))
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return ErrProductNotFound
	}
	if product.MerchantID != order.MerchantID {
		return ErrProductMerchantMismatch
	}

	id := product.ID
	order.ProductID = &id
	order.Amount = product.Price
	order.Currency = product.Currency
	return nil
}

// Persist stamps identifiers and timestamps onto a prepared order and inserts
// it. Identifier collisions are retried transparently; running out of
// attempts returns ErrCodeSpaceExhausted.
func (f *OrderFactory) Persist(ctx context.Context, order *model.GiftOrder) (*model.GiftOrder, error) {
	if order == nil {
		return nil, ErrInvalidRequest
	}

	now := f.now().UTC()
	order.Status = model.StatusPaid
	order.CreatedAt = now
	order.SentAt = &now
	order.ExpiresAt = now.Add(model.OrderLifetime)

	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err := f.assignIdentifiers(order); err != nil {
			return nil, err
		}

		err := f.store.Insert(ctx, order)
		if err == nil {
			f.metrics.OrderCreated(order.GiftType)
			log.Info().
				Str("order_id", order.ID).
				Str("merchant_id", order.MerchantID).
				Str("gift_type", string(order.GiftType)).
				Msg("gift order created")
			return order, nil
		}
		if !errors.Is(err, ErrDuplicateKey) {
			return nil, fmt.Errorf("insert order: %w", err)
		}
		log.Warn().
			Int("attempt", attempt).
			Int("max_attempts", f.maxAttempts).
			Msg("order identifier collision, regenerating")
	}

	log.Error().Int("max_attempts", f.maxAttempts).Msg("redeem code space exhausted")
	return nil, ErrCodeSpaceExhausted
}

func (f *OrderFactory) assignIdentifiers(order *model.GiftOrder) error {
	token, err := f.codes.NewAccessToken()
	if err != nil {
		return err
	}
	code, err := f.codes.NewRedeemCode()
	if err != nil {
		return err
	}
	order.ID = f.codes.NewOrderID()
	order.GiftToken = token
	order.RedeemCode = code
	return nil
}
