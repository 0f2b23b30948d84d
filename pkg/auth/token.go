package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// TokenConfig carries the signing parameters for merchant staff tokens.
type TokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Validate reports missing or invalid settings.
func (c TokenConfig) Validate() error {
	if c.Secret == "" {
		return errors.New("jwt secret is required")
	}
	if c.Issuer == "" {
		return errors.New("jwt issuer is required")
	}
	if c.TTL <= 0 {
		return errors.New("jwt ttl must be positive")
	}
	return nil
}

// StaffClaims is the typed JWT issued to merchant staff.
type StaffClaims struct {
	MerchantUserID string `json:"merchant_user_id"`
	MerchantID     string `json:"merchant_id"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

// MintStaffToken signs a token for the staff member and returns it with its jti.
func MintStaffToken(cfg TokenConfig, now time.Time, merchantUserID, merchantID, role string) (string, string, error) {
	if err := cfg.Validate(); err != nil {
		return "", "", err
	}
	if strings.TrimSpace(merchantUserID) == "" || strings.TrimSpace(merchantID) == "" {
		return "", "", errors.New("merchant user id and merchant id are required")
	}

	jti := uuid.NewString()
	claims := StaffClaims{
		MerchantUserID: merchantUserID,
		MerchantID:     merchantID,
		Role:           role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   merchantUserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, jti, nil
}

// ParseStaffToken validates signature, issuer and expiry and returns the claims.
func ParseStaffToken(cfg TokenConfig, tokenString string) (*StaffClaims, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}

	claims := &StaffClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.MerchantUserID == "" || claims.MerchantID == "" || claims.ID == "" {
		return nil, errors.New("token is missing staff claims")
	}
	return claims, nil
}
