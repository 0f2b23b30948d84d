package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/giftlink/internal/model"
	"github.com/fairyhunter13/giftlink/pkg/auth"
)

// AuthService signs merchant staff in and resolves bearer tokens back to
// the Staff identity that redemption requires.
type AuthService struct {
	users    MerchantUserLookup
	sessions auth.SessionStore
	tokens   auth.TokenConfig
	now      func() time.Time
}

// NewAuthService creates an AuthService.
func NewAuthService(users MerchantUserLookup, sessions auth.SessionStore, tokens auth.TokenConfig) *AuthService {
	return &AuthService{users: users, sessions: sessions, tokens: tokens, now: time.Now}
}

// Login verifies credentials and issues a bearer token. Unknown emails,
// inactive accounts and wrong passwords all return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.MerchantUser, error) {
	user, err := s.users.GetMerchantUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", nil, fmt.Errorf("get merchant user: %w", err)
	}
	if user == nil || !user.IsActive {
		return "", nil, ErrInvalidCredentials
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidHash) {
			log.Error().Str("merchant_user_id", user.ID).Msg("stored password hash is malformed")
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return "", nil, ErrInvalidCredentials
	}

	token, jti, err := auth.MintStaffToken(s.tokens, s.now(), user.ID, user.MerchantID, string(user.Role))
	if err != nil {
		return "", nil, fmt.Errorf("mint token: %w", err)
	}
	if err := s.sessions.Create(ctx, jti, user.ID, s.tokens.TTL); err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}
	return token, user, nil
}

// Authenticate validates a bearer token and confirms its session is live.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.StaffClaims, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	claims, err := auth.ParseStaffToken(s.tokens, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	live, err := s.sessions.Exists(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if !live {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// Logout revokes the session behind jti.
func (s *AuthService) Logout(ctx context.Context, jti string) error {
	if err := s.sessions.Revoke(ctx, jti); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
