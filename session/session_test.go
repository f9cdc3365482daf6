package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryKV(), time.Hour)

	created, err := store.Create(ctx, Session{UserID: 7, Email: " Ana@Store.CL ", Role: RoleEmployee, Branch: "Centro"})
	require.NoError(t, err)
	require.NotEmpty(t, created.Token)
	assert.Equal(t, "ana@store.cl", created.Email)
	assert.False(t, created.IsAdmin())

	got, err := store.Get(ctx, created.Token)
	require.NoError(t, err)
	assert.Equal(t, 7, got.UserID)
	assert.Equal(t, "Centro", got.Branch)

	require.NoError(t, store.Remove(ctx, created.Token))
	_, err = store.Get(ctx, created.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = store.Get(ctx, "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	kv := NewMemoryKV()
	kv.now = func() time.Time { return now }
	store := NewStore(kv, time.Minute)
	store.now = func() time.Time { return now }

	created, err := store.Create(ctx, Session{UserID: 1, Email: "a@b.cl", Role: RoleAdmin})
	require.NoError(t, err)
	assert.True(t, created.IsAdmin())

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, created.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisKV_NotConnected(t *testing.T) {
	kv := NewRedisKV(nil)
	_, _, err := kv.Get(context.Background(), "x")
	assert.Error(t, err)
	assert.Error(t, kv.Set(context.Background(), "x", "y", 0))
}
