package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/giftlink/internal/model"
	"github.com/fairyhunter13/giftlink/internal/service"
	giftvalidator "github.com/fairyhunter13/giftlink/internal/validator"
	"github.com/fairyhunter13/giftlink/pkg/auth"
)

// AuthServiceInterface defines merchant staff session operations.
type AuthServiceInterface interface {
	Authenticator
	Login(ctx context.Context, email, password string) (string, *model.MerchantUser, error)
	Logout(ctx context.Context, jti string) error
}

// MerchantOrderServiceInterface defines the merchant-scoped order reads.
type MerchantOrderServiceInterface interface {
	LookupByCode(ctx context.Context, merchantID, code string) (*model.OrderDetailResponse, error)
	MerchantOrder(ctx context.Context, merchantID, orderID string) (*model.OrderDetailResponse, error)
	MerchantHistory(ctx context.Context, merchantID string) ([]*model.GiftOrder, error)
}

// RedemptionServiceInterface defines the redemption operations.
type RedemptionServiceInterface interface {
	RedeemItem(ctx context.Context, staff service.Staff, code string) (*model.GiftOrder, error)
	RedeemCredit(ctx context.Context, staff service.Staff, code string, amount int64, notes *string) (*model.GiftOrder, *model.CreditRedemption, error)
}

// MerchantHandler handles the merchant portal routes.
type MerchantHandler struct {
	auth        AuthServiceInterface
	orders      MerchantOrderServiceInterface
	redemptions RedemptionServiceInterface
	validator   *validator.Validate
}

// NewMerchantHandler creates a new MerchantHandler.
func NewMerchantHandler(a AuthServiceInterface, orders MerchantOrderServiceInterface, redemptions RedemptionServiceInterface, v *validator.Validate) *MerchantHandler {
	return &MerchantHandler{auth: a, orders: orders, redemptions: redemptions, validator: v}
}

// Register mounts the merchant routes on r. Everything except login
// requires a staff token.
func (h *MerchantHandler) Register(r fiber.Router) {
	r.Post("/login", h.Login)

	protected := r.Group("", RequireStaff(h.auth))
	protected.Post("/logout", h.Logout)
	protected.Get("/orders", h.History)
	protected.Get("/orders/by-code/:code", h.LookupByCode)
	protected.Get("/orders/:id", h.GetOrder)
	protected.Post("/redeem/item", h.RedeemItem)
	protected.Post("/redeem/credit", h.RedeemCredit)
}

// Login handles POST /api/merchant/login.
func (h *MerchantHandler) Login(c *fiber.Ctx) error {
	var req model.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, giftvalidator.Message(err))
	}

	token, user, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return serviceError(c, err, "failed to log in merchant user")
	}

	log.Info().
		Str("merchant_user_id", user.ID).
		Str("merchant_id", user.MerchantID).
		Msg("merchant user logged in")
	return c.JSON(model.LoginResponse{Token: token, User: user})
}

// Logout handles POST /api/merchant/logout.
func (h *MerchantHandler) Logout(c *fiber.Ctx) error {
	claims, ok := staffClaims(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if err := h.auth.Logout(c.Context(), claims.ID); err != nil {
		return serviceError(c, err, "failed to log out merchant user")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// History handles GET /api/merchant/orders.
func (h *MerchantHandler) History(c *fiber.Ctx) error {
	claims, ok := staffClaims(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized")
	}
	orders, err := h.orders.MerchantHistory(c.Context(), claims.MerchantID)
	if err != nil {
		return serviceError(c, err, "failed to list merchant orders")
	}
	if orders == nil {
		orders = []*model.GiftOrder{}
	}
	return c.JSON(fiber.Map{"orders": orders})
}

// GetOrder handles GET /api/merchant/orders/:id.
func (h *MerchantHandler) GetOrder(c *fiber.Ctx) error {
	claims, ok := staffClaims(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized")
	}
	detail, err := h.orders.MerchantOrder(c.Context(), claims.MerchantID, c.Params("id"))
	if err != nil {
		return serviceError(c, err, "failed to get merchant order")
	}
	return c.JSON(detail)
}

// LookupByCode handles GET /api/merchant/orders/by-code/:code.
func (h *MerchantHandler) LookupByCode(c *fiber.Ctx) error {
	claims, ok := staffClaims(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized")
	}
	detail, err := h.orders.LookupByCode(c.Context(), claims.MerchantID, c.Params("code"))
	if err != nil {
		return serviceError(c, err, "failed to look up redeem code")
	}
	return c.JSON(detail)
}

// RedeemItem handles POST /api/merchant/redeem/item.
func (h *MerchantHandler) RedeemItem(c *fiber.Ctx) error {
	claims, ok := staffClaims(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized")
	}
	var req model.RedeemItemRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, giftvalidator.Message(err))
	}

	order, err := h.redemptions.RedeemItem(c.Context(), staffOf(claims), req.Code)
	if err != nil {
		return serviceError(c, err, "failed to redeem item gift")
	}
	return c.JSON(order)
}

// RedeemCredit handles POST /api/merchant/redeem/credit.
func (h *MerchantHandler) RedeemCredit(c *fiber.Ctx) error {
	claims, ok := staffClaims(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "unauthorized")
	}
	var req model.RedeemCreditRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, giftvalidator.Message(err))
	}

	order, entry, err := h.redemptions.RedeemCredit(c.Context(), staffOf(claims), req.Code, *req.AmountToDeduct, req.Notes)
	if err != nil {
		return serviceError(c, err, "failed to redeem credit gift")
	}
	return c.JSON(model.CreditRedemptionResponse{Order: order, Redemption: entry})
}

func staffOf(claims *auth.StaffClaims) service.Staff {
	return service.Staff{MerchantID: claims.MerchantID, MerchantUserID: claims.MerchantUserID}
}
