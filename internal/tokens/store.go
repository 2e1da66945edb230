package tokens

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrInvalidToken = errors.New("invalid token")

// Token is an access token for a third-party data provider.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

func (t Token) validate(now time.Time) error {
	if strings.TrimSpace(t.AccessToken) == "" {
		return errors.Join(ErrInvalidToken, errors.New("access token is empty"))
	}
	if t.ExpiresAt.IsZero() {
		return errors.Join(ErrInvalidToken, errors.New("expiry is required"))
	}
	if t.Expired(now) {
		return errors.Join(ErrInvalidToken, errors.New("token is already expired"))
	}
	return nil
}

// Store keeps provider tokens until they expire.
type Store interface {
	Get(ctx context.Context, provider string) (Token, bool, error)
	Set(ctx context.Context, provider string, token Token) error
	Clear(ctx context.Context, provider string) error
}
