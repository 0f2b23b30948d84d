package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderLifetime is how long a gift stays redeemable after creation.
const OrderLifetime = 90 * 24 * time.Hour

// CreditCurrency is the fixed currency of store-credit gifts.
const CreditCurrency = "LBP"

// DefaultThemeID is applied when the sender does not pick a theme.
const DefaultThemeID = "celebration"

// GiftType selects which redemption path an order follows.
type GiftType string

const (
	GiftTypeItem   GiftType = "ITEM"
	GiftTypeCredit GiftType = "CREDIT"
)

// IsValid reports whether the gift type is a known variant.
func (g GiftType) IsValid() bool {
	return g == GiftTypeItem || g == GiftTypeCredit
}

// DeliveryChannel is how the shareable link reaches the recipient.
type DeliveryChannel string

const (
	DeliveryWhatsApp DeliveryChannel = "whatsapp"
	DeliverySMS      DeliveryChannel = "sms"
	DeliveryEmail    DeliveryChannel = "email"
)

// OrderStatus is the lifecycle state of a gift order.
type OrderStatus string

const (
	StatusCreated  OrderStatus = "CREATED"
	StatusPaid     OrderStatus = "PAID"
	StatusSent     OrderStatus = "SENT"
	StatusRedeemed OrderStatus = "REDEEMED"
	StatusCanceled OrderStatus = "CANCELED"
	StatusExpired  OrderStatus = "EXPIRED"
)

// IsTerminal reports whether no further transition may leave this status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusRedeemed, StatusCanceled, StatusExpired:
		return true
	}
	return false
}

var transitions = map[OrderStatus][]OrderStatus{
	StatusCreated: {StatusPaid, StatusRedeemed, StatusCanceled, StatusExpired},
	StatusPaid:    {StatusSent, StatusRedeemed, StatusCanceled, StatusExpired},
	StatusSent:    {StatusRedeemed, StatusCanceled, StatusExpired},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// GiftOrder is a single purchased gift. ProductID is set only for ITEM gifts,
// CreditAmount and CreditRemaining only for CREDIT gifts.
type GiftOrder struct {
	ID                       string          `json:"id"`
	GiftType                 GiftType        `json:"gift_type"`
	MerchantID               string          `json:"merchant_id"`
	ProductID                *string         `json:"product_id"`
	Amount                   decimal.Decimal `json:"amount"`
	Currency                 string          `json:"currency"`
	CreditAmount             *int64          `json:"credit_amount"`
	CreditRemaining          *int64          `json:"credit_remaining"`
	Status                   OrderStatus     `json:"status"`
	GiftToken                string          `json:"gift_token"`
	RedeemCode               string          `json:"redeem_code"`
	SenderName               string          `json:"sender_name"`
	ReceiverName             string          `json:"receiver_name"`
	ReceiverContact          string          `json:"receiver_contact"`
	DeliveryChannel          DeliveryChannel `json:"delivery_channel"`
	Message                  string          `json:"message"`
	ThemeID                  string          `json:"theme_id"`
	CreatedAt                time.Time       `json:"created_at"`
	ScheduledSendAt          *time.Time      `json:"scheduled_send_at"`
	SentAt                   *time.Time      `json:"sent_at"`
	RedeemedAt               *time.Time      `json:"redeemed_at"`
	RedeemedByMerchantUserID *string         `json:"redeemed_by_merchant_user_id"`
	ExpiresAt                time.Time       `json:"expires_at"`
}

// IsExpiredAt reports whether the order can no longer be redeemed at now,
// either because it was marked expired or its expiry time has passed.
func (o *GiftOrder) IsExpiredAt(now time.Time) bool {
	return o.Status == StatusExpired || now.After(o.ExpiresAt)
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (o *GiftOrder) Clone() *GiftOrder {
	if o == nil {
		return nil
	}
	c := *o
	c.ProductID = clonePtr(o.ProductID)
	c.CreditAmount = clonePtr(o.CreditAmount)
	c.CreditRemaining = clonePtr(o.CreditRemaining)
	c.ScheduledSendAt = clonePtr(o.ScheduledSendAt)
	c.SentAt = clonePtr(o.SentAt)
	c.RedeemedAt = clonePtr(o.RedeemedAt)
	c.RedeemedByMerchantUserID = clonePtr(o.RedeemedByMerchantUserID)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// CreditRedemption is one deduction against a CREDIT order's balance.
// Entries are append-only.
type CreditRedemption struct {
	ID             string    `json:"id"`
	OrderID        string    `json:"order_id"`
	AmountDeducted int64     `json:"amount_deducted"`
	DeductedAt     time.Time `json:"deducted_at"`
	MerchantUserID string    `json:"merchant_user_id"`
	Notes          *string   `json:"notes"`
}
