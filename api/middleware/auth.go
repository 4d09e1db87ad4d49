package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const bearerPrefix = "bearer "

// BearerToken returns the credential of an "Authorization: Bearer" header,
// or "" when the header is missing or uses another scheme.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) <= len(bearerPrefix) || !strings.EqualFold(raw[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(raw[len(bearerPrefix):])
}

// Auth admits requests carrying a valid access token whose session is still
// live. Logout and refresh rotation revoke the session, so a token can be
// rejected before it expires.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			deny := func(err error) { responses.WriteError(ctx, logg, w, err) }

			token := BearerToken(r)
			if token == "" {
				deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "Not authorized, no token"))
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err == nil && claims.ID == "" {
				err = pkgerrors.New(pkgerrors.CodeUnauthorized, "token has no session id")
			}
			if err != nil {
				deny(pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "Not authorized, token failed"))
				return
			}

			if sessions != nil {
				live, err := sessions.HasSession(ctx, claims.ID)
				switch {
				case err != nil:
					deny(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				case !live:
					deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "Session expired, please log in again"))
					return
				}
			}

			ctx = WithAccessID(WithUserID(ctx, claims.UserID), claims.ID)
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
