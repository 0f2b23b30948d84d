package model

import "time"

// CreateOrderRequest is the DTO for POST /api/orders.
type CreateOrderRequest struct {
	GiftType        GiftType        `json:"gift_type" validate:"omitempty,oneof=ITEM CREDIT"`
	SenderName      string          `json:"sender_name" validate:"required,notblank,max=255"`
	ReceiverName    string          `json:"receiver_name" validate:"required,notblank,max=255"`
	ReceiverContact string          `json:"receiver_contact" validate:"required,notblank,max=255"`
	DeliveryChannel DeliveryChannel `json:"delivery_channel" validate:"required,oneof=whatsapp sms email"`
	MerchantID      string          `json:"merchant_id" validate:"required,notblank,max=255"`
	Message         string          `json:"message" validate:"required,notblank,max=2000"`
	ThemeID         string          `json:"theme_id" validate:"max=64"`
	ProductID       *string         `json:"product_id"`
	CreditAmount    *int64          `json:"credit_amount"`
	ScheduledSendAt *time.Time      `json:"scheduled_send_at"`
}

// RedeemItemRequest is the DTO for POST /api/merchant/redeem/item.
type RedeemItemRequest struct {
	Code string `json:"code" validate:"required,notblank,max=32"`
}

// RedeemCreditRequest is the DTO for POST /api/merchant/redeem/credit.
type RedeemCreditRequest struct {
	Code           string  `json:"code" validate:"required,notblank,max=32"`
	AmountToDeduct *int64  `json:"amount_to_deduct" validate:"required"`
	Notes          *string `json:"notes" validate:"omitempty,max=500"`
}

// CreditRedemptionResponse pairs the updated order with the new ledger entry.
type CreditRedemptionResponse struct {
	Order      *GiftOrder        `json:"order"`
	Redemption *CreditRedemption `json:"redemption"`
}

// OrderDetailResponse is what merchant staff see for a single order.
type OrderDetailResponse struct {
	Order       *GiftOrder         `json:"order"`
	Redemptions []CreditRedemption `json:"redemptions"`
}

// LoginRequest is the DTO for POST /api/merchant/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,notblank,max=255"`
	Password string `json:"password" validate:"required,max=255"`
}

// LoginResponse carries the bearer token and the authenticated staff member.
type LoginResponse struct {
	Token string        `json:"token"`
	User  *MerchantUser `json:"user"`
}
