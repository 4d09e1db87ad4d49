package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string), ttl: make(map[string]time.Duration)}
}

func (m *mockStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttl[key] = ttl
	return nil
}

func (m *mockStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

func newTestManager(store *mockStore) *Manager {
	return &Manager{store: store, keyer: store, ttl: time.Hour, now: time.Now}
}

func TestManagerStartAndRotate(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()
	userID := uuid.New()

	first, err := manager.Start(ctx, userID)
	require.NoError(t, err)
	assert.NotEmpty(t, first.RefreshToken)
	assert.Equal(t, time.Hour, store.ttl["sess:"+first.AccessID])

	ok, err := manager.HasSession(ctx, first.AccessID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = manager.Rotate(ctx, userID, first.AccessID, "wrong")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = manager.Rotate(ctx, uuid.New(), first.AccessID, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "token bound to another user")

	second, err := manager.Rotate(ctx, userID, first.AccessID, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.AccessID, second.AccessID)

	ok, err = manager.HasSession(ctx, first.AccessID)
	require.NoError(t, err)
	assert.False(t, ok, "old session must be gone after rotation")

	_, err = manager.Rotate(ctx, userID, first.AccessID, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken, "refresh tokens are single use")
}

func TestManagerRevoke(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()

	issued, err := manager.Start(ctx, uuid.New())
	require.NoError(t, err)
	require.NoError(t, manager.Revoke(ctx, issued.AccessID))

	ok, err := manager.HasSession(ctx, issued.AccessID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, manager.Revoke(ctx, " "))
}

func TestManagerRejectsCorruptRecord(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	store.data["sess:abc"] = "not-json"

	_, err := manager.Rotate(context.Background(), uuid.New(), "abc", "token")
	assert.True(t, errors.Is(err, ErrInvalidRefreshToken))
}

func TestStartRequiresUser(t *testing.T) {
	_, err := newTestManager(newMockStore()).Start(context.Background(), uuid.Nil)
	assert.Error(t, err)
}
