package service

import (
	"context"
	"time"

	"github.com/fairyhunter13/giftlink/internal/model"
)

// MutateFunc applies a transition to a private copy of an order. Returning an
// error discards the copy. A non-nil redemption is appended to the ledger in
// the same atomic step that persists the order.
type MutateFunc func(order *model.GiftOrder) (*model.CreditRedemption, error)

// OrderStore is the authoritative collection of gift orders.
// Getters return nil, nil when nothing matches.
type OrderStore interface {
	Insert(ctx context.Context, order *model.GiftOrder) error
	GetByID(ctx context.Context, id string) (*model.GiftOrder, error)
	GetByToken(ctx context.Context, id, token string) (*model.GiftOrder, error)
	GetByRedeemCode(ctx context.Context, code string) (*model.GiftOrder, error)
	ListByMerchant(ctx context.Context, merchantID string) ([]*model.GiftOrder, error)
	ListExpirable(ctx context.Context, now time.Time, limit int) ([]string, error)
	// Mutate serializes fn against every other mutation of the same order and
	// returns ErrNotFound when id is unknown.
	Mutate(ctx context.Context, id string, fn MutateFunc) (*model.GiftOrder, error)
}

// LedgerReader exposes the credit redemption history of an order.
type LedgerReader interface {
	ListForOrder(ctx context.Context, orderID string) ([]model.CreditRedemption, error)
}

// MerchantLookup resolves catalog merchants. Returns nil, nil when unknown.
type MerchantLookup interface {
	GetMerchant(ctx context.Context, id string) (*model.Merchant, error)
}

// ProductLookup resolves catalog products. Returns nil, nil when unknown.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*model.GiftProduct, error)
}

// MerchantUserLookup resolves merchant staff accounts by login email.
type MerchantUserLookup interface {
	GetMerchantUserByEmail(ctx context.Context, email string) (*model.MerchantUser, error)
}

// CodeGenerator issues identifiers for new orders.
type CodeGenerator interface {
	NewOrderID() string
	NewAccessToken() (string, error)
	NewRedeemCode() (string, error)
}

// MetricsRecorder receives order lifecycle events for instrumentation.
type MetricsRecorder interface {
	OrderCreated(giftType model.GiftType)
	RedemptionAttempt(giftType model.GiftType, outcome string)
	CreditDeducted(amount int64)
	OrdersExpired(count int)
}

type noopMetrics struct{}

func (noopMetrics) OrderCreated(model.GiftType)              {}
func (noopMetrics) RedemptionAttempt(model.GiftType, string) {}
func (noopMetrics) CreditDeducted(int64)                     {}
func (noopMetrics) OrdersExpired(int)                        {}

func metricsOrNoop(m MetricsRecorder) MetricsRecorder {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
