package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// memoryReplayStore keeps records in a map and remembers their TTLs.
type memoryReplayStore struct {
	records map[string]string
	ttls    map[string]time.Duration
}

func newMemoryReplayStore() *memoryReplayStore {
	return &memoryReplayStore{records: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryReplayStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.records[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryReplayStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.records[key]; ok {
		return false, nil
	}
	m.records[key], _ = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryReplayStore) IdempotencyKey(scope, id string) string {
	return "replay:" + scope + ":" + id
}

func (m *memoryReplayStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.records, k)
	}
	return nil
}

// countingHandler answers with the current status and counts invocations.
type countingHandler struct {
	calls  int
	status int
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.calls++
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(h.status)
	_, _ = w.Write([]byte(`{"success":true,"data":{"call":` + strconv.Itoa(h.calls) + `}}`))
}

func replayRequest(method, path, key, body string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	if userID != uuid.Nil {
		req = req.WithContext(WithUserID(req.Context(), userID))
	}
	return req
}

func TestRouteTTL(t *testing.T) {
	tests := []struct {
		method, path string
		want         time.Duration
		covered      bool
	}{
		{http.MethodPost, "/api/orders", criticalIdempotencyTTL, true},
		{http.MethodPost, "/api/orders/", criticalIdempotencyTTL, true},
		{http.MethodPost, "/api/cart", defaultIdempotencyTTL, true},
		{http.MethodPost, "/api/cart/merge", defaultIdempotencyTTL, true},
		{http.MethodPut, "/api/orders/5f0c/status", defaultIdempotencyTTL, true},
		{http.MethodGet, "/api/orders/5f0c", 0, false},
		{http.MethodPost, "/api/auth/login", 0, false},
		{http.MethodDelete, "/api/cart", 0, false},
	}
	for _, tt := range tests {
		ttl, covered := routeTTL(tt.method, tt.path)
		assert.Equal(t, tt.covered, covered, "%s %s", tt.method, tt.path)
		assert.Equal(t, tt.want, ttl, "%s %s", tt.method, tt.path)
	}
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	store := newMemoryReplayStore()
	next := &countingHandler{status: http.StatusCreated}
	handler := Idempotency(store, nil)(next)
	userID := uuid.New()

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, replayRequest(http.MethodPost, "/api/orders", "abc", `{"paymentMethod":"PAYPAL"}`, userID))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, replayRequest(http.MethodPost, "/api/orders", "abc", `{"paymentMethod":"PAYPAL"}`, userID))

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	for _, ttl := range store.ttls {
		assert.Equal(t, criticalIdempotencyTTL, ttl)
	}
}

func TestIdempotencyRunsHandlerEachTime(t *testing.T) {
	tests := []struct {
		name  string
		keys  [2]string
		users [2]uuid.UUID
	}{
		{"no key", [2]string{"", ""}, [2]uuid.UUID{uuid.Nil, uuid.Nil}},
		{"different users", [2]string{"same", "same"}, [2]uuid.UUID{uuid.New(), uuid.New()}},
		{"different keys", [2]string{"one", "two"}, [2]uuid.UUID{uuid.Nil, uuid.Nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &countingHandler{status: http.StatusOK}
			handler := Idempotency(newMemoryReplayStore(), nil)(next)
			for i := range 2 {
				handler.ServeHTTP(httptest.NewRecorder(), replayRequest(http.MethodPost, "/api/cart", tt.keys[i], `{}`, tt.users[i]))
			}
			assert.Equal(t, 2, next.calls)
		})
	}
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	store := newMemoryReplayStore()
	next := &countingHandler{status: http.StatusServiceUnavailable}
	handler := Idempotency(store, nil)(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, replayRequest(http.MethodPost, "/api/cart/merge", "retry-me", `{"items":[]}`, uuid.Nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Empty(t, store.records)

	next.status = http.StatusOK
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, replayRequest(http.MethodPost, "/api/cart/merge", "retry-me", `{"items":[]}`, uuid.Nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, next.calls)
	assert.Len(t, store.records, 1)
}

func TestIdempotencyRejectsReusedKeyWithNewBody(t *testing.T) {
	next := &countingHandler{status: http.StatusOK}
	handler := Idempotency(newMemoryReplayStore(), nil)(next)

	handler.ServeHTTP(httptest.NewRecorder(), replayRequest(http.MethodPost, "/api/cart/merge", "xyz", `{"items":[]}`, uuid.Nil))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, replayRequest(http.MethodPost, "/api/cart/merge", "xyz", `{"items":[{}]}`, uuid.Nil))

	require.Equal(t, http.StatusConflict, rec.Code)
	var body types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(pkgerrors.CodeIdempotency), body.Code)
	assert.Equal(t, 1, next.calls)
}

func TestIdempotencyRejectsOversizedKey(t *testing.T) {
	next := &countingHandler{status: http.StatusOK}
	rec := httptest.NewRecorder()
	Idempotency(newMemoryReplayStore(), nil)(next).
		ServeHTTP(rec, replayRequest(http.MethodPost, "/api/orders", strings.Repeat("k", maxIdempotencyKeyLen+1), `{}`, uuid.Nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, next.calls)
}
