package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	idempotencyHeader      = "Idempotency-Key"
	maxIdempotencyKeyLen   = 255
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// replayRoute is a mutating endpoint whose responses may be replayed.
type replayRoute struct {
	method string
	match  func(path string) bool
	ttl    time.Duration
}

var replayRoutes = []replayRoute{
	{http.MethodPost, exactPath("/api/orders"), criticalIdempotencyTTL},
	{http.MethodPost, exactPath("/api/cart"), defaultIdempotencyTTL},
	{http.MethodPost, exactPath("/api/cart/merge"), defaultIdempotencyTTL},
	{http.MethodPut, func(p string) bool {
		return strings.HasPrefix(p, "/api/orders/") && strings.HasSuffix(p, "/status")
	}, defaultIdempotencyTTL},
}

func exactPath(want string) func(string) bool {
	return func(p string) bool { return p == want }
}

// storedResponse is what a replay writes back. Body marshals as base64.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash"`
}

// Idempotency replays the stored response when a request repeats an
// Idempotency-Key on a covered route. The header is optional. Replays are
// scoped to the caller, method and path, and the same key with a different
// body is rejected. 5xx responses are never stored so the key stays usable
// for a retry.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, covered := routeTTL(r.Method, r.URL.Path)
			clientKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if !covered || store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if len(clientKey) > maxIdempotencyKeyLen {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			digest := sha256.Sum256(body)
			hash := hex.EncodeToString(digest[:])
			key := store.IdempotencyKey(replayScope(r), clientKey)

			prior, err := loadResponse(ctx, store, key)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			}
			if prior != nil {
				if prior.RequestHash != hash {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "Idempotency-Key reused with a different request body"))
					return
				}
				prior.writeTo(w)
				return
			}

			capture := &capturingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(capture, r)
			if capture.status >= http.StatusInternalServerError {
				return
			}
			saveResponse(ctx, store, logg, key, ttl, storedResponse{
				Status:      capture.status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.buf.Bytes(),
				RequestHash: hash,
			})
		})
	}
}

func replayScope(r *http.Request) string {
	return UserIDFromContext(r.Context()).String() + "|" + r.Method + "|" + r.URL.Path
}

// loadResponse returns nil, nil when nothing is stored under key.
func loadResponse(ctx context.Context, store pkgredis.IdempotencyStore, key string) (*storedResponse, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp storedResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// saveResponse is best effort: the request already succeeded, so a storage
// failure only costs the replay.
func saveResponse(ctx context.Context, store pkgredis.IdempotencyStore, logg *logger.Logger, key string, ttl time.Duration, resp storedResponse) {
	payload, err := json.Marshal(resp)
	if err == nil {
		_, err = store.SetNX(ctx, key, string(payload), ttl)
	}
	if err != nil && logg != nil {
		logg.Error(logg.WithField(ctx, "idempotency_key", key), "persist idempotency record", err)
	}
}

func (s *storedResponse) writeTo(w http.ResponseWriter) {
	if s.ContentType != "" {
		w.Header().Set("Content-Type", s.ContentType)
	}
	w.WriteHeader(s.Status)
	_, _ = w.Write(s.Body)
}

// routeTTL matches on the request path: route-level middleware runs before
// a subrouter has resolved its chi pattern.
func routeTTL(method, path string) (time.Duration, bool) {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	for _, route := range replayRoutes {
		if route.method == method && route.match(path) {
			return route.ttl, true
		}
	}
	return 0, false
}

type capturingWriter struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (c *capturingWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *capturingWriter) Write(b []byte) (int, error) {
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}
