package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/fairyhunter13/giftlink/internal/model"
)

// MemoryLedger is an append-only, per-order list of credit redemptions.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string][]model.CreditRedemption
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string][]model.CreditRedemption)}
}

// Append adds entry to the end of its order's history.
func (l *MemoryLedger) Append(ctx context.Context, entry model.CreditRedemption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.ID == "" || entry.OrderID == "" {
		return errors.New("redemption id and order id are required")
	}
	if entry.AmountDeducted <= 0 {
		return errors.New("redemption amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[entry.OrderID] = append(l.entries[entry.OrderID], entry)
	return nil
}

// ListForOrder returns a copy of the order's entries in insertion order.
func (l *MemoryLedger) ListForOrder(ctx context.Context, orderID string) ([]model.CreditRedemption, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.CreditRedemption, len(l.entries[orderID]))
	copy(out, l.entries[orderID])
	return out, nil
}
