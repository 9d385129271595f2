package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingToken = errors.New("auth: token not found")
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrNoAdminHash  = errors.New("auth: admin token hash not configured")
)

// DefaultCost is the bcrypt cost used by HashToken when cost is out of range.
const DefaultCost = 12

// HashToken returns the bcrypt hash of an admin token, suitable for the
// admin_token_hash setting.
func HashToken(token string, cost int) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", fmt.Errorf("auth: bcrypt hash failed: %w", err)
	}
	return string(hashed), nil
}

// TokenVerifier checks a raw bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) error
}

// AdminGuard verifies bearer tokens against a single bcrypt hash.
type AdminGuard struct {
	hash []byte
}

// NewAdminGuard returns a guard for hash. An empty hash yields a guard that
// rejects every token with ErrNoAdminHash.
func NewAdminGuard(hash string) *AdminGuard {
	return &AdminGuard{hash: []byte(strings.TrimSpace(hash))}
}

func (g *AdminGuard) Configured() bool { return g != nil && len(g.hash) > 0 }

func (g *AdminGuard) Verify(ctx context.Context, token string) error {
	if err := contextError(ctx); err != nil {
		return err
	}
	if !g.Configured() {
		return ErrNoAdminHash
	}
	if token == "" {
		return ErrMissingToken
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(token)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidToken
		}
		return fmt.Errorf("auth: compare token: %w", err)
	}
	return nil
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
