package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

type sessionsStub struct {
	live bool
	err  error
}

func (s sessionsStub) HasSession(context.Context, string) (bool, error) {
	return s.live, s.err
}

func tokenFor(t *testing.T, userID uuid.UUID, jti string, issuedAt time.Time) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, issuedAt, auth.AccessTokenPayload{
		UserID: userID,
		Email:  "shopper@example.com",
		JTI:    jti,
	})
	require.NoError(t, err)
	return token
}

func TestAuthRejections(t *testing.T) {
	live := tokenFor(t, uuid.New(), "access-1", time.Now())
	expired := tokenFor(t, uuid.New(), "access-2", time.Now().Add(-2*time.Hour))

	tests := []struct {
		name     string
		header   string
		sessions sessionsStub
		status   int
		message  string
	}{
		{"no header", "", sessionsStub{live: true}, http.StatusUnauthorized, "Not authorized, no token"},
		{"garbage token", "Bearer invalid", sessionsStub{live: true}, http.StatusUnauthorized, "Not authorized, token failed"},
		{"expired token", "Bearer " + expired, sessionsStub{live: true}, http.StatusUnauthorized, "Not authorized, token failed"},
		{"revoked session", "Bearer " + live, sessionsStub{live: false}, http.StatusUnauthorized, "Session expired, please log in again"},
		{"session store down", "Bearer " + live, sessionsStub{err: errors.New("redis down")}, http.StatusServiceUnavailable, "dependency unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Auth(testJWT, tt.sessions, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("handler must not run")
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			var body types.ErrorEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body.Error)
		})
	}
}

func TestAuthSeedsPrincipal(t *testing.T) {
	userID := uuid.New()
	token := tokenFor(t, userID, "access-1", time.Now())

	var gotUser uuid.UUID
	var gotAccess string
	handler := Auth(testJWT, sessionsStub{live: true}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotAccess = AccessIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, userID, gotUser)
	assert.Equal(t, "access-1", gotAccess)
}

func TestPrincipalSettersKeepEachOther(t *testing.T) {
	userID := uuid.New()
	ctx := WithAccessID(WithUserID(context.Background(), userID), "jti")
	ctx = WithUserID(ctx, userID)
	assert.Equal(t, "jti", AccessIDFromContext(ctx))
	assert.Equal(t, userID, UserIDFromContext(ctx))
	assert.Equal(t, uuid.Nil, UserIDFromContext(context.Background()))
}

func TestBearerToken(t *testing.T) {
	for header, want := range map[string]string{
		"":               "",
		"Bearer":         "",
		"Basic abc":      "",
		"Bearer abc":     "abc",
		"BEARER  abc  ":  "abc",
		"  bearer xyz  ": "xyz",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		assert.Equal(t, want, BearerToken(req), "header %q", header)
	}
}
