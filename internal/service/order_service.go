package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fairyhunter13/giftlink/internal/model"
)

// OrderService answers recipient and merchant reads and applies the
// lifecycle transitions owned by outside collaborators (delivery,
// cancellation, expiry).
type OrderService struct {
	store  OrderStore
	ledger LedgerReader
	now    func() time.Time
}

// NewOrderService creates an OrderService.
func NewOrderService(store OrderStore, ledger LedgerReader) *OrderService {
	return &OrderService{store: store, ledger: ledger, now: time.Now}
}

// GetByToken returns the order when token matches. Unknown ids and wrong
// tokens both yield ErrNotFound.
func (s *OrderService) GetByToken(ctx context.Context, id, token string) (*model.GiftOrder, error) {
	if strings.TrimSpace(id) == "" || token == "" {
		return nil, ErrNotFound
	}
	order, err := s.store.GetByToken(ctx, id, token)
	if err != nil {
		return nil, fmt.Errorf("get order by token: %w", err)
	}
	if order == nil {
		return nil, ErrNotFound
	}
	return order, nil
}

// LookupByCode returns the order behind code together with its ledger,
// restricted to orders of merchantID.
func (s *OrderService) LookupByCode(ctx context.Context, merchantID, code string) (*model.OrderDetailResponse, error) {
	order, err := findForMerchant(ctx, s.store, merchantID, code)
	if err != nil {
		return nil, err
	}
	return s.withLedger(ctx, order)
}

// MerchantOrder returns one order of merchantID with its ledger.
func (s *OrderService) MerchantOrder(ctx context.Context, merchantID, orderID string) (*model.OrderDetailResponse, error) {
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.MerchantID != merchantID {
		return nil, ErrNotFound
	}
	return s.withLedger(ctx, order)
}

// MerchantHistory lists all orders of merchantID, newest first.
// Returns an empty slice, not nil, when there are none.
func (s *OrderService) MerchantHistory(ctx context.Context, merchantID string) ([]*model.GiftOrder, error) {
	orders, err := s.store.ListByMerchant(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("list merchant orders: %w", err)
	}
	if orders == nil {
		orders = []*model.GiftOrder{}
	}
	return orders, nil
}

func (s *OrderService) withLedger(ctx context.Context, order *model.GiftOrder) (*model.OrderDetailResponse, error) {
	entries, err := s.ledger.ListForOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	if entries == nil {
		entries = []model.CreditRedemption{}
	}
	return &model.OrderDetailResponse{Order: order, Redemptions: entries}, nil
}

// MarkSent records hand-off to the delivery channel (PAID -> SENT).
func (s *OrderService) MarkSent(ctx context.Context, orderID string) (*model.GiftOrder, error) {
	return s.transition(ctx, orderID, model.StatusSent, func(o *model.GiftOrder, now time.Time) error {
		o.SentAt = &now
		return nil
	})
}

// Cancel moves a non-terminal order to CANCELED.
func (s *OrderService) Cancel(ctx context.Context, orderID string) (*model.GiftOrder, error) {
	return s.transition(ctx, orderID, model.StatusCanceled, nil)
}

// Expire moves a non-terminal order whose expiry has passed to EXPIRED.
func (s *OrderService) Expire(ctx context.Context, orderID string) (*model.GiftOrder, error) {
	return s.transition(ctx, orderID, model.StatusExpired, func(o *model.GiftOrder, now time.Time) error {
		if !now.After(o.ExpiresAt) {
			return fmt.Errorf("%w: order %s expires at %s", ErrInvalidTransition, o.ID, o.ExpiresAt.Format(time.RFC3339))
		}
		return nil
	})
}

func (s *OrderService) transition(ctx context.Context, orderID string, to model.OrderStatus, apply func(*model.GiftOrder, time.Time) error) (*model.GiftOrder, error) {
	return s.store.Mutate(ctx, orderID, func(o *model.GiftOrder) (*model.CreditRedemption, error) {
		if o.Status.IsTerminal() {
			return nil, ErrAlreadyFinalized
		}
		if !model.CanTransition(o.Status, to) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
		}
		now := s.now().UTC()
		if apply != nil {
			if err := apply(o, now); err != nil {
				return nil, err
			}
		}
		o.Status = to
		return nil, nil
	})
}
