package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/shop-core/internal/catalog"
	"github.com/vasiliy-maslov/shop-core/internal/customer"
	handler "github.com/vasiliy-maslov/shop-core/internal/handler/http"
	"github.com/vasiliy-maslov/shop-core/internal/order"
	"github.com/vasiliy-maslov/shop-core/internal/report"
)

type Dependencies struct {
	Orders    order.Service
	Catalog   catalog.Service
	Inventory handler.Ledger
	Reports   report.Service
	Customers customer.Service

	JWTSecret []byte
	Limiter   *handler.RateLimiter
	// Ping reports whether the store is reachable.
	Ping func(ctx context.Context) error
}

func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ping(ctx); err != nil {
				log.Error().Err(err).Msg("Health check failed")
				http.Error(w, "store unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(api chi.Router) {
		if deps.Limiter != nil {
			api.Use(deps.Limiter.Middleware)
		}
		api.Use(handler.Authenticate(deps.JWTSecret))

		handler.NewOrderHandler(deps.Orders).RegisterRoutes(api)
		handler.NewCatalogHandler(deps.Catalog).RegisterRoutes(api)
		handler.NewInventoryHandler(deps.Inventory).RegisterRoutes(api)
		handler.NewReportHandler(deps.Reports).RegisterRoutes(api)
		handler.NewCustomerHandler(deps.Customers).RegisterRoutes(api)
	})

	return r
}
