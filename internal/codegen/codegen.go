// Package codegen produces order identifiers, recipient access tokens and
// human-enterable redeem codes.
package codegen

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// RedeemCodeAlphabet has 32 symbols and omits 0/O and 1/I.
const RedeemCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RedeemCodeLength is the number of symbols in a redeem code.
const RedeemCodeLength = 6

const accessTokenBytes = 32

// Generator is the default crypto/rand backed generator.
type Generator struct{}

// New returns a Generator.
func New() *Generator {
	return &Generator{}
}

// NewOrderID returns a random UUIDv4 string.
func (g *Generator) NewOrderID() string {
	return uuid.NewString()
}

// NewAccessToken returns a 256-bit random URL-safe token.
func (g *Generator) NewAccessToken() (string, error) {
	buf := make([]byte, accessTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewRedeemCode returns RedeemCodeLength symbols drawn uniformly from
// RedeemCodeAlphabet. The alphabet size divides 256, so masking a random
// byte keeps the distribution uniform.
func (g *Generator) NewRedeemCode() (string, error) {
	buf := make([]byte, RedeemCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate redeem code: %w", err)
	}
	code := make([]byte, RedeemCodeLength)
	for i, b := range buf {
		code[i] = RedeemCodeAlphabet[int(b)&(len(RedeemCodeAlphabet)-1)]
	}
	return string(code), nil
}

// IsRedeemCode reports whether s is a well-formed, already normalized code.
func IsRedeemCode(s string) bool {
	if len(s) != RedeemCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isAlphabetSymbol(s[i]) {
			return false
		}
	}
	return true
}

func isAlphabetSymbol(c byte) bool {
	for i := 0; i < len(RedeemCodeAlphabet); i++ {
		if RedeemCodeAlphabet[i] == c {
			return true
		}
	}
	return false
}
