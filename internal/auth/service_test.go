package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

type stubSession struct {
	next     int
	sessions map[string]stubRecord
	revoked  []string
}

type stubRecord struct {
	userID  uuid.UUID
	refresh string
}

func newStubSession() *stubSession {
	return &stubSession{sessions: map[string]stubRecord{}}
}

func (s *stubSession) issue(userID uuid.UUID) session.Issued {
	s.next++
	issued := session.Issued{AccessID: uuid.NewString(), RefreshToken: fmt.Sprintf("refresh-%d", s.next)}
	s.sessions[issued.AccessID] = stubRecord{userID: userID, refresh: issued.RefreshToken}
	return issued
}

func (s *stubSession) Start(_ context.Context, userID uuid.UUID) (session.Issued, error) {
	return s.issue(userID), nil
}

func (s *stubSession) Rotate(_ context.Context, userID uuid.UUID, oldAccessID, provided string) (session.Issued, error) {
	rec, ok := s.sessions[oldAccessID]
	if !ok || rec.userID != userID || rec.refresh != provided {
		return session.Issued{}, session.ErrInvalidRefreshToken
	}
	delete(s.sessions, oldAccessID)
	return s.issue(userID), nil
}

func (s *stubSession) Revoke(_ context.Context, accessID string) error {
	delete(s.sessions, accessID)
	s.revoked = append(s.revoked, accessID)
	return nil
}

type failingMerger struct{}

func (failingMerger) Merge(context.Context, uuid.UUID, []cart.GuestItem) (*cart.CartView, error) {
	return nil, errors.New("redis unavailable")
}

var testJWT = config.JWTConfig{Secret: "test-secret", Issuer: "storefront", ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60}

type fixture struct {
	conn     *gorm.DB
	svc      Service
	sessions *stubSession
	carts    cart.Service
}

func newFixture(t *testing.T, merger guestCartMerger, out io.Writer) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{Output: out})
	carts, err := cart.NewService(cart.NewRepository(conn), products.NewRepository(conn), nil, config.CartConfig{}, logg)
	require.NoError(t, err)
	if merger == nil {
		merger = carts
	}
	sessions := newStubSession()
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(conn),
		SessionManager: sessions,
		Hasher: security.NewHasher(config.PasswordConfig{
			ArgonMemoryKB: 8 * 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32,
		}),
		Carts:     merger,
		JWTConfig: testJWT,
		Logger:    logg,
	})
	require.NoError(t, err)
	return fixture{conn: conn, svc: svc, sessions: sessions, carts: carts}
}

func guestCart(t *testing.T, raw string) *GuestCart {
	t.Helper()
	var gc GuestCart
	require.NoError(t, json.Unmarshal([]byte(raw), &gc))
	return &gc
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected error for missing user repository")
	}
}

func TestRegisterIssuesSessionAndNormalizesEmail(t *testing.T) {
	f := newFixture(t, nil, io.Discard)
	ctx := context.Background()

	resp, err := f.svc.Register(ctx, RegisterRequest{Name: "  Ada Lovelace ", Email: "Ada@Example.COM", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, "Ada Lovelace", resp.User.Name)
	assert.NotEmpty(t, resp.RefreshToken)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	_, live := f.sessions.sessions[claims.ID]
	assert.True(t, live, "access token jti should name the stored session")

	_, err = f.svc.Register(ctx, RegisterRequest{Name: "Imposter", Email: "ADA@example.com", Password: "secret2"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
	assert.Equal(t, "Email already in use", pkgerrors.As(err).Message())
}

func TestLogin(t *testing.T) {
	f := newFixture(t, nil, io.Discard)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	resp, err := f.svc.Login(ctx, LoginRequest{Email: " ADA@example.com ", Password: "secret1"})
	require.NoError(t, err)
	require.NotNil(t, resp.User.LastLoginAt)

	for _, bad := range []LoginRequest{
		{Email: "ada@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "secret1"},
		{Email: "", Password: ""},
	} {
		_, err = f.svc.Login(ctx, bad)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "login %q", bad.Email)
		assert.Equal(t, "Invalid credentials", pkgerrors.As(err).Message())
	}
}

func TestLoginMergesGuestCart(t *testing.T) {
	f := newFixture(t, nil, io.Discard)
	ctx := context.Background()
	product := dbtest.MustCreateProduct(t, f.conn, dbtest.WithStock(3), dbtest.WithSizes(enums.ProductSizeM))
	_, err := f.svc.Register(ctx, RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	gc := guestCart(t, fmt.Sprintf(`{"items":[
		{"product":"%s","size":"M","quantity":5},
		{"product":"not-an-id","size":"M","quantity":1}
	]}`, product.ID))
	resp, err := f.svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "secret1", GuestCart: gc})
	require.NoError(t, err)

	view, err := f.carts.Get(ctx, resp.User.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity, "merged quantity is clamped to stock")
}

func TestGuestCartMergeFailureDoesNotFailAuth(t *testing.T) {
	var buf bytes.Buffer
	f := newFixture(t, failingMerger{}, &buf)

	gc := guestCart(t, fmt.Sprintf(`{"items":[{"product":"%s","size":"M","quantity":1}]}`, uuid.New()))
	resp, err := f.svc.Register(context.Background(), RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1", GuestCart: gc})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Contains(t, buf.String(), "guest cart merge failed")
}

func TestRefreshRotatesSession(t *testing.T) {
	f := newFixture(t, nil, io.Discard)
	ctx := context.Background()
	first, err := f.svc.Register(ctx, RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	second, err := f.svc.Refresh(ctx, RefreshRequest{AccessToken: first.AccessToken, RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, first.User.ID, second.User.ID)

	// the old pair is single use
	_, err = f.svc.Refresh(ctx, RefreshRequest{AccessToken: first.AccessToken, RefreshToken: first.RefreshToken})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = f.svc.Refresh(ctx, RefreshRequest{AccessToken: "garbage", RefreshToken: second.RefreshToken})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestRefreshAcceptsExpiredAccessToken(t *testing.T) {
	f := newFixture(t, nil, io.Discard)
	ctx := context.Background()
	resp, err := f.svc.Register(ctx, RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	expired, err := pkgAuth.MintAccessToken(testJWT, time.Now().Add(-time.Hour), pkgAuth.AccessTokenPayload{
		UserID: claims.UserID,
		JTI:    claims.ID,
	})
	require.NoError(t, err)

	_, err = f.svc.Refresh(ctx, RefreshRequest{AccessToken: expired, RefreshToken: resp.RefreshToken})
	require.NoError(t, err)
}

func TestLogoutAndMe(t *testing.T) {
	f := newFixture(t, nil, io.Discard)
	ctx := context.Background()
	resp, err := f.svc.Register(ctx, RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	me, err := f.svc.Me(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", me.Email)

	_, err = f.svc.Me(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx, claims.ID))
	assert.Equal(t, []string{claims.ID}, f.sessions.revoked)

	assert.True(t, pkgerrors.IsCode(f.svc.Logout(ctx, ""), pkgerrors.CodeUnauthorized))
}
