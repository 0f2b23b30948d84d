package handler

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/giftlink/internal/model"
	giftvalidator "github.com/fairyhunter13/giftlink/internal/validator"
)

// CheckoutServiceInterface defines the purchase operation behind order creation.
type CheckoutServiceInterface interface {
	Purchase(ctx context.Context, req *model.CreateOrderRequest) (*model.GiftOrder, error)
}

// OrderReader fetches an order for the sender or recipient holding its token.
type OrderReader interface {
	GetByToken(ctx context.Context, id, token string) (*model.GiftOrder, error)
}

// OrderHandler handles the public gift order routes.
type OrderHandler struct {
	checkout  CheckoutServiceInterface
	orders    OrderReader
	validator *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(checkout CheckoutServiceInterface, orders OrderReader, v *validator.Validate) *OrderHandler {
	return &OrderHandler{checkout: checkout, orders: orders, validator: v}
}

// CreateOrder handles POST /api/orders.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req model.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, giftvalidator.Message(err))
	}

	order, err := h.checkout.Purchase(c.Context(), &req)
	if err != nil {
		return serviceError(c, err, "failed to create order")
	}

	log.Info().
		Str("order_id", order.ID).
		Str("merchant_id", order.MerchantID).
		Str("gift_type", string(order.GiftType)).
		Msg("order created")
	return c.Status(fiber.StatusCreated).JSON(order)
}

// GetOrder handles GET /api/orders/:id?t=<gift token>. A wrong token and a
// missing order are indistinguishable.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Query("t"))
	if token == "" {
		return errorResponse(c, fiber.StatusBadRequest, "invalid request: t is required")
	}

	order, err := h.orders.GetByToken(c.Context(), c.Params("id"), token)
	if err != nil {
		return serviceError(c, err, "failed to get order")
	}
	return c.JSON(order)
}
