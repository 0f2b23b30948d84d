package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/giftlink/internal/service"
)

// errorResponse writes the {"error": msg} body shared by every route.
func errorResponse(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// statusFor maps service errors to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, service.ErrAlreadyFinalized),
		errors.Is(err, service.ErrExpired),
		errors.Is(err, service.ErrNoBalance),
		errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrInvalidTransition):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrPaymentFailed):
		return fiber.StatusPaymentRequired
	case errors.Is(err, service.ErrWrongGiftType),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrAmountOutOfRange),
		errors.Is(err, service.ErrCreditDisabled),
		errors.Is(err, service.ErrProductRequired),
		errors.Is(err, service.ErrProductMerchantMismatch),
		errors.Is(err, service.ErrMerchantNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrInvalidRequest):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// serviceError responds with the status for err. Internal errors are logged
// and replaced with a generic message.
func serviceError(c *fiber.Ctx, err error, msg string) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		rid, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
		log.Error().
			Err(err).
			Str("request_id", rid).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg(msg)
		return errorResponse(c, status, "internal server error")
	}
	return errorResponse(c, status, publicMessage(err))
}

// publicMessage returns the sentinel's text without wrapped detail, except
// for payment failures where the provider's reason is useful to the buyer.
func publicMessage(err error) string {
	for _, sentinel := range []error{
		service.ErrNotFound, service.ErrUnauthorized, service.ErrInvalidCredentials,
		service.ErrAlreadyFinalized, service.ErrExpired, service.ErrNoBalance,
		service.ErrInsufficientBalance, service.ErrInvalidTransition, service.ErrWrongGiftType,
		service.ErrInvalidAmount, service.ErrAmountOutOfRange, service.ErrCreditDisabled,
		service.ErrProductRequired, service.ErrProductMerchantMismatch,
		service.ErrMerchantNotFound, service.ErrProductNotFound, service.ErrInvalidRequest,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
