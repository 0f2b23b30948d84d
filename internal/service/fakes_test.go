package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/giftlink/internal/codegen"
	"github.com/fairyhunter13/giftlink/internal/model"
)

// fakeOrderStore is a mutex-serialized OrderStore with an attached ledger.
type fakeOrderStore struct {
	mu        sync.Mutex
	orders    map[string]*model.GiftOrder
	ledger    map[string][]model.CreditRedemption
	insertErr func(order *model.GiftOrder) error
	inserts   int
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		orders: make(map[string]*model.GiftOrder),
		ledger: make(map[string][]model.CreditRedemption),
	}
}

func (s *fakeOrderStore) Insert(_ context.Context, order *model.GiftOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if s.insertErr != nil {
		if err := s.insertErr(order); err != nil {
			return err
		}
	}
	for _, existing := range s.orders {
		if existing.ID == order.ID || existing.RedeemCode == order.RedeemCode || existing.GiftToken == order.GiftToken {
			return fmt.Errorf("%w: fake", ErrDuplicateKey)
		}
	}
	s.orders[order.ID] = order.Clone()
	return nil
}

func (s *fakeOrderStore) GetByID(_ context.Context, id string) (*model.GiftOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id].Clone(), nil
}

func (s *fakeOrderStore) GetByToken(ctx context.Context, id, token string) (*model.GiftOrder, error) {
	o, _ := s.GetByID(ctx, id)
	if o == nil || o.GiftToken != token {
		return nil, nil
	}
	return o, nil
}

func (s *fakeOrderStore) GetByRedeemCode(_ context.Context, code string) (*model.GiftOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if strings.EqualFold(o.RedeemCode, code) {
			return o.Clone(), nil
		}
	}
	return nil, nil
}

func (s *fakeOrderStore) ListByMerchant(_ context.Context, merchantID string) ([]*model.GiftOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.GiftOrder
	for _, o := range s.orders {
		if o.MerchantID == merchantID {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeOrderStore) ListExpirable(_ context.Context, now time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, o := range s.orders {
		if !o.Status.IsTerminal() && o.ExpiresAt.Before(now) {
			ids = append(ids, o.ID)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *fakeOrderStore) Mutate(_ context.Context, id string, fn MutateFunc) (*model.GiftOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	draft := current.Clone()
	entry, err := fn(draft)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		entry.OrderID = id
		s.ledger[id] = append(s.ledger[id], *entry)
	}
	s.orders[id] = draft
	return draft.Clone(), nil
}

func (s *fakeOrderStore) ListForOrder(_ context.Context, orderID string) ([]model.CreditRedemption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.CreditRedemption(nil), s.ledger[orderID]...), nil
}

func (s *fakeOrderStore) put(o *model.GiftOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o.Clone()
}

func (s *fakeOrderStore) ledgerSum(orderID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, e := range s.ledger[orderID] {
		sum += e.AmountDeducted
	}
	return sum
}

// fakeCatalog implements MerchantLookup, ProductLookup and MerchantUserLookup.
type fakeCatalog struct {
	merchants map[string]*model.Merchant
	products  map[string]*model.GiftProduct
	users     map[string]*model.MerchantUser
	err       error
}

func (c *fakeCatalog) GetMerchant(_ context.Context, id string) (*model.Merchant, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.merchants[id], nil
}

func (c *fakeCatalog) GetProduct(_ context.Context, id string) (*model.GiftProduct, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.products[id], nil
}

func (c *fakeCatalog) GetMerchantUserByEmail(_ context.Context, email string) (*model.MerchantUser, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.users[strings.ToLower(email)], nil
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		merchants: map[string]*model.Merchant{
			"m-1": {
				ID: "m-1", Name: "Cafe Hamra", City: "Beirut", IsActive: true,
				CreditIsEnabled: true, CreditMinAmount: 100000, CreditMaxAmount: 5000000,
			},
			"m-2": {ID: "m-2", Name: "Bakery Byblos", City: "Byblos", IsActive: true},
		},
		products: map[string]*model.GiftProduct{
			"p-latte": {
				ID: "p-latte", MerchantID: "m-1", Title: "Latte",
				Price: decimal.RequireFromString("4.50"), Currency: "USD", IsActive: true,
			},
			"p-croissant": {
				ID: "p-croissant", MerchantID: "m-2", Title: "Croissant",
				Price: decimal.RequireFromString("2.00"), Currency: "USD", IsActive: true,
			},
		},
		users: map[string]*model.MerchantUser{},
	}
}

// seqCodes hands out deterministic identifiers; redeem codes come from codes
// in order and the last one repeats once exhausted.
type seqCodes struct {
	mu    sync.Mutex
	n     int
	codes []string
	err   error
}

func (g *seqCodes) NewOrderID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("order-%d", g.n)
}

func (g *seqCodes) NewAccessToken() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return fmt.Sprintf("token-%d", g.n+1), nil
}

func (g *seqCodes) NewRedeemCode() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	if len(g.codes) == 0 {
		return base32Code(g.n + 1), nil
	}
	code := g.codes[0]
	if len(g.codes) > 1 {
		g.codes = g.codes[1:]
	}
	return code, nil
}

func base32Code(n int) string {
	buf := make([]byte, codegen.RedeemCodeLength)
	for i := len(buf) - 1; i >= 0; i-- {
		buf[i] = codegen.RedeemCodeAlphabet[n%len(codegen.RedeemCodeAlphabet)]
		n /= len(codegen.RedeemCodeAlphabet)
	}
	return string(buf)
}

// recordingMetrics captures MetricsRecorder calls.
type recordingMetrics struct {
	mu       sync.Mutex
	created  []model.GiftType
	outcomes []string
	deducted int64
	expired  int
}

func (m *recordingMetrics) OrderCreated(giftType model.GiftType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, giftType)
}

func (m *recordingMetrics) RedemptionAttempt(_ model.GiftType, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *recordingMetrics) CreditDeducted(amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deducted += amount
}

func (m *recordingMetrics) OrdersExpired(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expired += count
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(s string) *string { return &s }

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func paidCreditOrder(id, code string, balance int64) *model.GiftOrder {
	sent := testNow
	return &model.GiftOrder{
		ID:              id,
		GiftType:        model.GiftTypeCredit,
		MerchantID:      "m-1",
		Amount:          decimal.NewFromInt(balance),
		Currency:        model.CreditCurrency,
		CreditAmount:    int64Ptr(balance),
		CreditRemaining: int64Ptr(balance),
		Status:          model.StatusPaid,
		GiftToken:       "tok-" + id,
		RedeemCode:      code,
		SenderName:      "Rami",
		ReceiverName:    "Lea",
		ReceiverContact: "+96170000000",
		DeliveryChannel: model.DeliveryWhatsApp,
		Message:         "Enjoy",
		ThemeID:         model.DefaultThemeID,
		CreatedAt:       testNow,
		SentAt:          &sent,
		ExpiresAt:       testNow.Add(model.OrderLifetime),
	}
}

func paidItemOrder(id, code string) *model.GiftOrder {
	o := paidCreditOrder(id, code, 1)
	o.GiftType = model.GiftTypeItem
	o.ProductID = strPtr("p-latte")
	o.Amount = decimal.RequireFromString("4.50")
	o.Currency = "USD"
	o.CreditAmount = nil
	o.CreditRemaining = nil
	return o
}
