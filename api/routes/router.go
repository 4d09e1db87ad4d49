package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Cache is the Redis surface the HTTP layer needs: auth rate limiting,
// idempotent replays and the readiness ping. A nil Cache disables the first
// two.
type Cache interface {
	controllers.Pinger
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	IdempotencyKey(scope, id string) string
	RateLimitKey(scope string) string
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	cache Cache,
	sessionChecker session.AccessSessionChecker,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	authService auth.Service,
	productService products.Service,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersSvc orders.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	// a nil interface keeps the middlewares in pass-through mode
	var (
		rateStore   middleware.RateLimitStore
		replayStore pkgredis.IdempotencyStore
	)
	readiness := map[string]controllers.Pinger{"database": dbP}
	if cache != nil {
		rateStore = cache
		replayStore = cache
		readiness["redis"] = cache
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	requireAuth := middleware.Auth(cfg.JWT, sessionChecker, logg)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(middleware.RegisterRateLimitPolicy(cfg.AuthRateLimit), rateStore, logg)).
				Post("/register", controllers.AuthRegister(authService, logg))
			r.With(middleware.AuthRateLimit(middleware.LoginRateLimitPolicy(cfg.AuthRateLimit), rateStore, logg)).
				Post("/login", controllers.AuthLogin(authService, logg))
			r.Post("/refresh", controllers.AuthRefresh(authService, logg))
			r.With(requireAuth).Post("/logout", controllers.AuthLogout(authService, logg))
			r.With(requireAuth).Get("/me", controllers.AuthMe(authService, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(productService, logg))
			r.Get("/{id}", controllers.ProductDetail(productService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Post("/guest/validate", controllers.CartValidateGuest(cartService, logg))

			r.Group(func(r chi.Router) {
				r.Use(requireAuth, middleware.Idempotency(replayStore, logg))
				r.Get("/", controllers.CartGet(cartService, logg))
				r.Post("/", controllers.CartAdd(cartService, logg))
				r.Delete("/", controllers.CartClear(cartService, logg))
				r.Post("/merge", controllers.CartMerge(cartService, logg))
				r.Put("/{itemId}", controllers.CartUpdateItem(cartService, logg))
				r.Delete("/{itemId}", controllers.CartRemoveItem(cartService, logg))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(requireAuth, middleware.Idempotency(replayStore, logg))
			r.Post("/", controllers.OrderCreate(checkoutService, logg))
			r.Get("/my", controllers.OrderListMine(ordersSvc, logg))
			r.Get("/{id}", controllers.OrderDetail(ordersSvc, logg))
			r.Put("/{id}/status", controllers.OrderUpdateStatus(ordersSvc, logg))
		})
	})

	return r
}
