package tokens

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/maxaizer/tender-monitor/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStoreContract(t *testing.T, store Store, expire func(d time.Duration)) {
	ctx := context.Background()

	_, found, err := store.Get(ctx, "autodesk")
	require.NoError(t, err)
	assert.False(t, found)

	token := Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		ExpiresAt:    time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Set(ctx, "autodesk", token))

	stored, found, err := store.Get(ctx, "autodesk")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, token.AccessToken, stored.AccessToken)
	assert.True(t, token.ExpiresAt.Equal(stored.ExpiresAt))

	require.NoError(t, store.Clear(ctx, "autodesk"))
	_, found, err = store.Get(ctx, "autodesk")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "autodesk", token))
	expire(2 * time.Hour)
	_, found, err = store.Get(ctx, "autodesk")
	require.NoError(t, err)
	assert.False(t, found, "expired tokens are not returned")

	assert.ErrorIs(t, store.Set(ctx, "autodesk", Token{AccessToken: "x"}), ErrInvalidToken)
	assert.ErrorIs(t, store.Set(ctx, "autodesk", Token{ExpiresAt: time.Now().Add(time.Hour)}), ErrInvalidToken)
}

func Test_MemoryStore(t *testing.T) {
	store := NewMemoryStore()
	offset := time.Duration(0)
	store.now = func() time.Time { return time.Now().Add(offset) }

	testStoreContract(t, store, func(d time.Duration) { offset = d })
}

func Test_RedisStore(t *testing.T) {
	server := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+server.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client)

	testStoreContract(t, store, server.FastForward)
}

func Test_RedisStore_TTLFollowsExpiry(t *testing.T) {
	server := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+server.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client)
	require.NoError(t, store.Set(context.Background(), "shovels", Token{
		AccessToken: "a",
		ExpiresAt:   time.Now().Add(30 * time.Minute),
	}))

	ttl := server.TTL(keyPrefix + "shovels")
	assert.InDelta(t, (30 * time.Minute).Seconds(), ttl.Seconds(), 5)
}

func openTokenDb(t *testing.T, path string) *repositories.DbContext {
	t.Helper()
	dbContext, err := repositories.NewDbContext(repositories.DriverSqlite, path)
	require.NoError(t, err)
	sqlDB, err := dbContext.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, dbContext.Migrate())
	t.Cleanup(func() { _ = dbContext.Close() })
	return dbContext
}

func Test_DbStore(t *testing.T) {
	store := NewDbStore(openTokenDb(t, ":memory:").DB)
	offset := time.Duration(0)
	store.now = func() time.Time { return time.Now().Add(offset) }

	testStoreContract(t, store, func(d time.Duration) { offset = d })
}

func Test_DbStore_TokenSetByOneProcessIsSeenByAnother(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tender-monitor.db")
	cli := NewDbStore(openTokenDb(t, path).DB)
	server := NewDbStore(openTokenDb(t, path).DB)
	server.cacheTTL = 0
	ctx := context.Background()

	token := Token{AccessToken: "from-cli", TokenType: "Bearer", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, cli.Set(ctx, "autodesk_acc", token))

	stored, found, err := server.Get(ctx, "autodesk_acc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "from-cli", stored.AccessToken)

	rotated := Token{AccessToken: "rotated", ExpiresAt: time.Now().Add(2 * time.Hour)}
	require.NoError(t, cli.Set(ctx, "autodesk_acc", rotated))
	stored, found, err = server.Get(ctx, "autodesk_acc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "rotated", stored.AccessToken)

	require.NoError(t, cli.Clear(ctx, "autodesk_acc"))
	_, found, err = server.Get(ctx, "autodesk_acc")
	require.NoError(t, err)
	assert.False(t, found)
}

func Test_DbStore_ReadsAreCached(t *testing.T) {
	dbContext := openTokenDb(t, ":memory:")
	store := NewDbStore(dbContext.DB)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "shovels", Token{AccessToken: "a", ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, dbContext.DB.Exec("DELETE FROM provider_tokens").Error)

	stored, found, err := store.Get(ctx, "shovels")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "a", stored.AccessToken)
}

func Test_NewRedisClient_RejectsBadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}
