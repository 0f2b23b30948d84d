package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/giftlink/internal/service"
	"github.com/fairyhunter13/giftlink/pkg/auth"
)

const staffClaimsKey = "staff_claims"

// Authenticator validates bearer tokens.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.StaffClaims, error)
}

// RequireStaff rejects requests without a live merchant staff token and
// stores the claims for downstream handlers.
func RequireStaff(a Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return errorResponse(c, fiber.StatusUnauthorized, "unauthorized")
		}

		claims, err := a.Authenticate(c.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrUnauthorized) {
				return errorResponse(c, fiber.StatusUnauthorized, "unauthorized")
			}
			log.Error().Err(err).Msg("failed to authenticate staff token")
			return errorResponse(c, fiber.StatusInternalServerError, "internal server error")
		}

		c.Locals(staffClaimsKey, claims)
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// staffClaims returns the claims stored by RequireStaff.
func staffClaims(c *fiber.Ctx) (*auth.StaffClaims, bool) {
	claims, ok := c.Locals(staffClaimsKey).(*auth.StaffClaims)
	return claims, ok && claims != nil
}
