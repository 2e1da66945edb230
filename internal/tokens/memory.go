package tokens

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps tokens in process memory. DbStore uses it as its read cache.
type MemoryStore struct {
	cache *gocache.Cache
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: gocache.New(gocache.NoExpiration, 10*time.Minute), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, provider string) (Token, bool, error) {
	value, found := s.cache.Get(provider)
	if !found {
		return Token{}, false, nil
	}

	token := value.(Token)
	if token.Expired(s.now()) {
		s.cache.Delete(provider)
		return Token{}, false, nil
	}
	return token, true, nil
}

func (s *MemoryStore) Set(_ context.Context, provider string, token Token) error {
	now := s.now()
	if err := token.validate(now); err != nil {
		return err
	}
	s.put(provider, token, token.ExpiresAt.Sub(now))
	return nil
}

func (s *MemoryStore) put(provider string, token Token, ttl time.Duration) {
	if ttl > 0 {
		s.cache.Set(provider, token, ttl)
	}
}

func (s *MemoryStore) Clear(_ context.Context, provider string) error {
	s.cache.Delete(provider)
	return nil
}
