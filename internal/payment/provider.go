// Package payment is the boundary to the payment collaborator that captures
// funds before a gift order is created.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Request describes a charge for a single gift.
type Request struct {
	Amount   decimal.Decimal
	Currency string
	Metadata map[string]string
}

// Result is the provider's verdict. Success false with a nil error is a
// decline, not an infrastructure failure.
type Result struct {
	Success           bool
	ProviderPaymentID string
	ErrorMessage      string
}

// Provider captures payments.
type Provider interface {
	Pay(ctx context.Context, req Request) (Result, error)
}

// MockProvider approves every positive charge.
type MockProvider struct {
	now func() time.Time
}

// NewMockProvider returns a provider that always succeeds.
func NewMockProvider() *MockProvider {
	return &MockProvider{now: time.Now}
}

// Pay approves the charge and returns a synthetic payment id.
func (p *MockProvider) Pay(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if !req.Amount.IsPositive() {
		return Result{Success: false, ErrorMessage: "amount must be positive"}, nil
	}
	return Result{
		Success:           true,
		ProviderPaymentID: fmt.Sprintf("mock_%d", p.now().UnixMilli()),
	}, nil
}
