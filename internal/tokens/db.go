package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maxaizer/tender-monitor/internal/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultReadCacheTTL = 30 * time.Second

// DbStore keeps tokens in the application database so every process using
// the same database sees them. Reads go through a short-lived MemoryStore.
type DbStore struct {
	db       *gorm.DB
	local    *MemoryStore
	cacheTTL time.Duration
	now      func() time.Time
}

func NewDbStore(db *gorm.DB) *DbStore {
	store := &DbStore{db: db, local: NewMemoryStore(), cacheTTL: defaultReadCacheTTL, now: time.Now}
	store.local.now = func() time.Time { return store.now() }
	return store
}

func (s *DbStore) Get(ctx context.Context, provider string) (Token, bool, error) {
	if token, found, _ := s.local.Get(ctx, provider); found {
		return token, true, nil
	}

	var row entities.ProviderToken
	err := s.db.WithContext(ctx).Where("provider = ?", provider).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Token{}, false, nil
	}
	if err != nil {
		return Token{}, false, fmt.Errorf("failed to read token for %s: %w", provider, err)
	}

	token := Token{
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		TokenType:    row.TokenType,
		ExpiresAt:    row.ExpiresAt,
	}
	now := s.now()
	if token.Expired(now) {
		return Token{}, false, nil
	}
	s.remember(provider, token, now)
	return token, true, nil
}

func (s *DbStore) Set(ctx context.Context, provider string, token Token) error {
	now := s.now()
	if err := token.validate(now); err != nil {
		return err
	}

	row := entities.ProviderToken{
		Provider:     provider,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.ExpiresAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "token_type", "expires_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to store token for %s: %w", provider, err)
	}

	s.remember(provider, token, now)
	return nil
}

func (s *DbStore) Clear(ctx context.Context, provider string) error {
	_ = s.local.Clear(ctx, provider)
	err := s.db.WithContext(ctx).Where("provider = ?", provider).Delete(&entities.ProviderToken{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear token for %s: %w", provider, err)
	}
	return nil
}

// remember caches a token no longer than it stays valid.
func (s *DbStore) remember(provider string, token Token, now time.Time) {
	s.local.put(provider, token, min(s.cacheTTL, token.ExpiresAt.Sub(now)))
}
