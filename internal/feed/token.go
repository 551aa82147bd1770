package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tbourn/hijack-notifier/internal/domain"
)

// hasuraClaimsKey is the namespace the GraphQL engine reads its claims from.
const hasuraClaimsKey = "https://hasura.io/jwt/claims"

// tokenTTL bounds the lifetime of a forged token.
const tokenTTL = time.Hour

// ErrNoSecret is returned when no signing secret is configured.
var ErrNoSecret = errors.New("feed: jwt secret not configured")

// UserLookup resolves the user whose role the service assumes upstream.
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// TokenForger signs short-lived HS256 bearer tokens on behalf of a fixed
// directory user.
type TokenForger struct {
	users  UserLookup
	email  string
	secret []byte
	now    func() time.Time
}

// NewTokenForger returns a forger for the user identified by email.
func NewTokenForger(users UserLookup, email, secret string) *TokenForger {
	return &TokenForger{users: users, email: email, secret: []byte(secret), now: time.Now}
}

// Token looks up the user and signs a token carrying its role and id.
func (f *TokenForger) Token(ctx context.Context) (string, error) {
	if len(f.secret) == 0 {
		return "", ErrNoSecret
	}
	u, err := f.users.GetUserByEmail(ctx, f.email)
	if err != nil {
		return "", fmt.Errorf("lookup user %q: %w", f.email, err)
	}

	now := f.now()
	claims := jwt.MapClaims{
		hasuraClaimsKey: map[string]any{
			"x-hasura-allowed-roles": []string{u.Role},
			"x-hasura-default-role":  u.Role,
			"x-hasura-user-id":       u.ID,
		},
		"user": map[string]any{
			"id":    u.ID,
			"email": u.Email,
			"role":  u.Role,
		},
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(f.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
