package repository

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fairyhunter13/giftlink/internal/model"
	"github.com/fairyhunter13/giftlink/internal/service"
)

type orderEntry struct {
	mu    sync.Mutex
	order *model.GiftOrder
}

// MemoryOrderStore is an in-process OrderStore. The index maps are guarded
// by one RWMutex; each order has its own mutex so mutations of different
// orders never contend.
type MemoryOrderStore struct {
	mu      sync.RWMutex
	byID    map[string]*orderEntry
	byCode  map[string]string
	byToken map[string]string
	ledger  *MemoryLedger
}

// NewMemoryOrderStore creates an empty store that appends credit
// redemptions to ledger.
func NewMemoryOrderStore(ledger *MemoryLedger) *MemoryOrderStore {
	return &MemoryOrderStore{
		byID:    make(map[string]*orderEntry),
		byCode:  make(map[string]string),
		byToken: make(map[string]string),
		ledger:  ledger,
	}
}

// Insert adds a new order. Returns service.ErrDuplicateKey when the id,
// token or redeem code is taken.
func (s *MemoryOrderStore) Insert(ctx context.Context, order *model.GiftOrder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	code := strings.ToUpper(order.RedeemCode)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[order.ID]; ok {
		return fmt.Errorf("%w: order id", service.ErrDuplicateKey)
	}
	if _, ok := s.byCode[code]; ok {
		return fmt.Errorf("%w: redeem code", service.ErrDuplicateKey)
	}
	if _, ok := s.byToken[order.GiftToken]; ok {
		return fmt.Errorf("%w: gift token", service.ErrDuplicateKey)
	}

	stored := order.Clone()
	stored.RedeemCode = code
	s.byID[order.ID] = &orderEntry{order: stored}
	s.byCode[code] = order.ID
	s.byToken[order.GiftToken] = order.ID
	return nil
}

// GetByID returns a copy of the order, or nil when unknown.
func (s *MemoryOrderStore) GetByID(ctx context.Context, id string) (*model.GiftOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry := s.entry(id)
	if entry == nil {
		return nil, nil
	}
	return entry.snapshot(), nil
}

// GetByToken returns the order only when token matches exactly.
func (s *MemoryOrderStore) GetByToken(ctx context.Context, id, token string) (*model.GiftOrder, error) {
	order, err := s.GetByID(ctx, id)
	if err != nil || order == nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(order.GiftToken), []byte(token)) != 1 {
		return nil, nil
	}
	return order, nil
}

// GetByRedeemCode looks the code up case-insensitively.
func (s *MemoryOrderStore) GetByRedeemCode(ctx context.Context, code string) (*model.GiftOrder, error) {
	s.mu.RLock()
	id, ok := s.byCode[strings.ToUpper(strings.TrimSpace(code))]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return s.GetByID(ctx, id)
}

// ListByMerchant returns the merchant's orders, newest first.
func (s *MemoryOrderStore) ListByMerchant(ctx context.Context, merchantID string) ([]*model.GiftOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	orders := []*model.GiftOrder{}
	for _, entry := range s.entries() {
		order := entry.snapshot()
		if order.MerchantID == merchantID {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// ListExpirable returns up to limit ids of non-terminal orders whose expiry
// is before now, oldest expiry first.
func (s *MemoryOrderStore) ListExpirable(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var due []*model.GiftOrder
	for _, entry := range s.entries() {
		order := entry.snapshot()
		if !order.Status.IsTerminal() && order.ExpiresAt.Before(now) {
			due = append(due, order)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].ExpiresAt.Before(due[j].ExpiresAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	ids := make([]string, 0, len(due))
	for _, order := range due {
		ids = append(ids, order.ID)
	}
	return ids, nil
}

// Mutate runs fn on a copy of the order while holding that order's lock and
// commits the copy, plus any ledger entry, only when fn succeeds.
func (s *MemoryOrderStore) Mutate(ctx context.Context, id string, fn service.MutateFunc) (*model.GiftOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry := s.entry(id)
	if entry == nil {
		return nil, service.ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	draft := entry.order.Clone()
	redemption, err := fn(draft)
	if err != nil {
		return nil, err
	}
	if err := checkImmutable(entry.order, draft); err != nil {
		return nil, err
	}
	if redemption != nil {
		redemption.OrderID = id
		if err := s.ledger.Append(ctx, *redemption); err != nil {
			return nil, fmt.Errorf("append redemption: %w", err)
		}
	}
	entry.order = draft
	return draft.Clone(), nil
}

// Ping always succeeds; it lets the health check treat both backends alike.
func (s *MemoryOrderStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryOrderStore) entry(id string) *orderEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id]
}

func (s *MemoryOrderStore) entries() []*orderEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*orderEntry, 0, len(s.byID))
	for _, entry := range s.byID {
		out = append(out, entry)
	}
	return out
}

func (e *orderEntry) snapshot() *model.GiftOrder {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.order.Clone()
}

var errImmutableField = errors.New("mutation changed an immutable order field")

func checkImmutable(before, after *model.GiftOrder) error {
	if before.ID != after.ID ||
		before.GiftType != after.GiftType ||
		before.MerchantID != after.MerchantID ||
		before.GiftToken != after.GiftToken ||
		before.RedeemCode != after.RedeemCode ||
		!before.Amount.Equal(after.Amount) ||
		!equalInt64Ptr(before.CreditAmount, after.CreditAmount) {
		return errImmutableField
	}
	return nil
}

func equalInt64Ptr(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
