package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, rdb.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func Test_AppSessionStore_CreateGetDelete(t *testing.T) {
	// arrange
	rdb := redisClient(t)
	store := NewAppSessionStore(rdb, time.Minute)
	ctx := context.Background()
	sid, uid := uuid.NewString(), uuid.NewString()

	// act
	require.NoError(t, store.Create(ctx, sid, uid))
	got, err := store.Get(ctx, sid)

	// assert
	require.NoError(t, err)
	assert.Equal(t, uid, got.UserID)
	assert.Greater(t, got.ExpiresAt, got.IssuedAt)

	require.NoError(t, store.Delete(ctx, sid))
	_, err = store.Get(ctx, sid)
	assert.True(t, errors.Is(err, redis.Nil))
}

func Test_AppSessionStore_RevokeAllForUser(t *testing.T) {
	rdb := redisClient(t)
	store := NewAppSessionStore(rdb, time.Minute)
	ctx := context.Background()
	uid := uuid.NewString()
	a, b := uuid.NewString(), uuid.NewString()
	require.NoError(t, store.Create(ctx, a, uid))
	require.NoError(t, store.Create(ctx, b, uid))

	require.NoError(t, store.RevokeAllForUser(ctx, uid))

	_, err := store.Get(ctx, a)
	assert.ErrorIs(t, err, redis.Nil)
	_, err = store.Get(ctx, b)
	assert.ErrorIs(t, err, redis.Nil)
}

func Test_Store_PendingRegistrationRoundTrip(t *testing.T) {
	rdb := redisClient(t)
	store := NewStore(rdb, time.Minute)
	ctx := context.Background()
	token := uuid.NewString()
	p := &PendingRegistration{
		UserID:      uuid.NewString(),
		Email:       "somchai@uni.ac.th",
		DisplayName: "Somchai",
		IDNumber:    "6401",
		Session:     webauthn.SessionData{Challenge: "abc", UserID: []byte("u")},
	}

	require.NoError(t, store.SavePending(ctx, token, p))
	got, err := store.LoadPending(ctx, token)

	require.NoError(t, err)
	assert.Equal(t, p.Email, got.Email)
	assert.Equal(t, "abc", got.Session.Challenge)

	store.DelPending(ctx, token)
	_, err = store.LoadPending(ctx, token)
	assert.ErrorIs(t, err, redis.Nil)
}
