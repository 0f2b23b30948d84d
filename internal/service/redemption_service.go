package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/giftlink/internal/codegen"
	"github.com/fairyhunter13/giftlink/internal/model"
)

// Staff is the authenticated merchant identity acting on an order.
type Staff struct {
	MerchantID     string
	MerchantUserID string
}

// RedemptionService enforces the redemption transitions for item and
// credit gifts.
type RedemptionService struct {
	store   OrderStore
	metrics MetricsRecorder
	now     func() time.Time
	newID   func() string
}

// NewRedemptionService creates a RedemptionService over the given store.
func NewRedemptionService(store OrderStore, metrics MetricsRecorder) *RedemptionService {
	return &RedemptionService{
		store:   store,
		metrics: metricsOrNoop(metrics),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// RedeemItem marks an ITEM order as redeemed by staff. Exactly one of any
// number of concurrent callers wins; the rest see ErrAlreadyFinalized.
func (s *RedemptionService) RedeemItem(ctx context.Context, staff Staff, code string) (*model.GiftOrder, error) {
	order, err := findForMerchant(ctx, s.store, staff.MerchantID, code)
	if err != nil {
		s.record(model.GiftTypeItem, err)
		return nil, err
	}
	if order.GiftType != model.GiftTypeItem {
		s.record(model.GiftTypeItem, ErrWrongGiftType)
		return nil, ErrWrongGiftType
	}

	updated, err := s.store.Mutate(ctx, order.ID, func(o *model.GiftOrder) (*model.CreditRedemption, error) {
		now := s.now().UTC()
		if err := checkRedeemable(o, now); err != nil {
			return nil, err
		}
		markRedeemed(o, now, staff.MerchantUserID)
		return nil, nil
	})
	s.record(model.GiftTypeItem, err)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("order_id", updated.ID).
		Str("merchant_id", staff.MerchantID).
		Str("merchant_user_id", staff.MerchantUserID).
		Msg("item gift redeemed")
	return updated, nil
}

// RedeemCredit deducts amount from a CREDIT order's balance and appends a
// ledger entry. Draining the balance to zero marks the order redeemed.
func (s *RedemptionService) RedeemCredit(ctx context.Context, staff Staff, code string, amount int64, notes *string) (*model.GiftOrder, *model.CreditRedemption, error) {
	order, err := findForMerchant(ctx, s.store, staff.MerchantID, code)
	if err != nil {
		s.record(model.GiftTypeCredit, err)
		return nil, nil, err
	}
	if order.GiftType != model.GiftTypeCredit {
		s.record(model.GiftTypeCredit, ErrWrongGiftType)
		return nil, nil, ErrWrongGiftType
	}

	var entry *model.CreditRedemption
	updated, err := s.store.Mutate(ctx, order.ID, func(o *model.GiftOrder) (*model.CreditRedemption, error) {
		now := s.now().UTC()
		if err := checkRedeemable(o, now); err != nil {
			return nil, err
		}
		if amount <= 0 {
			return nil, ErrInvalidAmount
		}
		if o.CreditRemaining == nil {
			return nil, fmt.Errorf("%w: order %s has no balance recorded", ErrNoBalance, o.ID)
		}
		remaining := *o.CreditRemaining
		if remaining <= 0 {
			return nil, ErrNoBalance
		}
		if amount > remaining {
			return nil, ErrInsufficientBalance
		}

		left := remaining - amount
		o.CreditRemaining = &left
		if left == 0 {
			markRedeemed(o, now, staff.MerchantUserID)
		}
		entry = &model.CreditRedemption{
			ID:             s.newID(),
			OrderID:        o.ID,
			AmountDeducted: amount,
			DeductedAt:     now,
			MerchantUserID: staff.MerchantUserID,
			Notes:          notes,
		}
		return entry, nil
	})
	s.record(model.GiftTypeCredit, err)
	if err != nil {
		return nil, nil, err
	}
	s.metrics.CreditDeducted(amount)

	log.Info().
		Str("order_id", updated.ID).
		Str("merchant_id", staff.MerchantID).
		Str("merchant_user_id", staff.MerchantUserID).
		Int64("deducted", amount).
		Int64("remaining", *updated.CreditRemaining).
		Str("status", string(updated.Status)).
		Msg("credit gift deducted")
	return updated, entry, nil
}

func (s *RedemptionService) record(giftType model.GiftType, err error) {
	s.metrics.RedemptionAttempt(giftType, RedemptionOutcome(err))
}

// checkRedeemable reports why o cannot be redeemed at now, if anything.
func checkRedeemable(o *model.GiftOrder, now time.Time) error {
	switch o.Status {
	case model.StatusRedeemed, model.StatusCanceled:
		return ErrAlreadyFinalized
	}
	if o.IsExpiredAt(now) {
		return ErrExpired
	}
	if !model.CanTransition(o.Status, model.StatusRedeemed) {
		return ErrInvalidTransition
	}
	return nil
}

func markRedeemed(o *model.GiftOrder, now time.Time, merchantUserID string) {
	by := merchantUserID
	o.Status = model.StatusRedeemed
	o.RedeemedAt = &now
	o.RedeemedByMerchantUserID = &by
}

// NormalizeRedeemCode trims and uppercases a code as entered by staff.
func NormalizeRedeemCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// findForMerchant resolves a code to an order owned by merchantID. Orders of
// other merchants are reported as ErrNotFound so code existence does not leak.
func findForMerchant(ctx context.Context, store OrderStore, merchantID, code string) (*model.GiftOrder, error) {
	normalized := NormalizeRedeemCode(code)
	if !codegen.IsRedeemCode(normalized) {
		return nil, ErrNotFound
	}
	order, err := store.GetByRedeemCode(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("get order by code: %w", err)
	}
	if order == nil || order.MerchantID != merchantID {
		return nil, ErrNotFound
	}
	return order, nil
}

// RedemptionOutcome maps a redemption result to a stable metrics label.
func RedemptionOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrWrongGiftType):
		return "wrong_gift_type"
	case errors.Is(err, ErrAlreadyFinalized):
		return "already_finalized"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrNoBalance):
		return "no_balance"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	default:
		return "error"
	}
}
