package model

import "github.com/shopspring/decimal"

// Merchant is catalog reference data; the order core only reads it.
type Merchant struct {
	ID                  string  `json:"id" yaml:"id"`
	Name                string  `json:"name" yaml:"name"`
	Description         string  `json:"description" yaml:"description"`
	City                string  `json:"city" yaml:"city"`
	Area                string  `json:"area" yaml:"area"`
	Address             string  `json:"address" yaml:"address"`
	Phone               string  `json:"phone" yaml:"phone"`
	Hours               string  `json:"hours" yaml:"hours"`
	LogoURL             string  `json:"logo_url" yaml:"logo_url"`
	CoverURL            string  `json:"cover_url" yaml:"cover_url"`
	IsActive            bool    `json:"is_active" yaml:"is_active"`
	Rating              float64 `json:"rating" yaml:"rating"`
	ReviewCount         int     `json:"review_count" yaml:"review_count"`
	CreditIsEnabled     bool    `json:"credit_is_enabled" yaml:"credit_is_enabled"`
	CreditMinAmount     int64   `json:"credit_min_amount" yaml:"credit_min_amount"`
	CreditMaxAmount     int64   `json:"credit_max_amount" yaml:"credit_max_amount"`
	CreditPresetAmounts []int64 `json:"credit_preset_amounts" yaml:"credit_preset_amounts"`
}

// GiftProduct is an item a sender can gift from a merchant.
type GiftProduct struct {
	ID                 string          `json:"id" yaml:"id"`
	MerchantID         string          `json:"merchant_id" yaml:"merchant_id"`
	Title              string          `json:"title" yaml:"title"`
	Description        string          `json:"description" yaml:"description"`
	Price              decimal.Decimal `json:"price" yaml:"-"`
	Currency           string          `json:"currency" yaml:"currency"`
	ImageURL           string          `json:"image_url" yaml:"image_url"`
	Category           string          `json:"category" yaml:"category"`
	IsActive           bool            `json:"is_active" yaml:"is_active"`
	SubstitutionPolicy string          `json:"substitution_policy" yaml:"substitution_policy"`
}

// MerchantRole distinguishes merchant owners from floor staff.
type MerchantRole string

const (
	MerchantRoleOwner MerchantRole = "owner"
	MerchantRoleStaff MerchantRole = "staff"
)

// IsValid reports whether the role is known.
func (r MerchantRole) IsValid() bool {
	return r == MerchantRoleOwner || r == MerchantRoleStaff
}

// MerchantUser is a staff member allowed to look up and redeem codes.
type MerchantUser struct {
	ID           string       `json:"id"`
	MerchantID   string       `json:"merchant_id"`
	Role         MerchantRole `json:"role"`
	Email        string       `json:"email"`
	IsActive     bool         `json:"is_active"`
	PasswordHash string       `json:"-"`
}
