package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"somnicart/internal/domain"
	"somnicart/internal/metrics"
	cartsvc "somnicart/internal/service/cart"
)

type CartService interface {
	Get(ctx context.Context, userID string) (*domain.RemoteCartRecord, error)
	Save(ctx context.Context, userID string, in cartsvc.SaveInput) (*domain.RemoteCartRecord, error)
	Delete(ctx context.Context, userID string) error
	Ready(ctx context.Context) error
}

type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, lines []domain.LineRequest) (domain.CheckoutSession, error)
}

type ProductService interface {
	List(ctx context.Context, first int, query string) ([]domain.Product, error)
	Get(ctx context.Context, handle string) (*domain.Product, error)
}

// Deps carries the services behind the API routes.
type Deps struct {
	CartSvc     CartService
	CheckoutSvc CheckoutService
	ProductSvc  ProductService

	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer

	CORSOrigins  []string
	CheckoutRate RateLimiterConfig

	// TrustedProxies lists proxy addresses or CIDRs whose forwarding headers
	// name the client. Empty trusts none and uses the peer address.
	TrustedProxies []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *slog.Logger, deps Deps, limiter *RateLimiter) (*gin.Engine, error) {
	if deps.CartSvc == nil || deps.CheckoutSvc == nil || deps.ProductSvc == nil {
		return nil, errors.New("cart, checkout and product services are required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	if err := router.SetTrustedProxies(deps.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(requestIDMiddleware(), requestLogger(logger), metricsMiddleware(deps.Metrics), gin.Recovery())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Content-Type", requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.CartSvc))
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(deps.Gatherer)))
	}

	api := router.Group("/api")
	carts := &cartHandlers{svc: deps.CartSvc, logger: logger}
	api.GET("/carts/:userId", carts.get)
	api.PUT("/carts/:userId", carts.put)
	api.DELETE("/carts/:userId", carts.delete)

	checkout := &checkoutHandlers{svc: deps.CheckoutSvc, logger: logger}
	api.POST("/checkout", limiter.Middleware(logger), checkout.create)

	products := &productHandlers{svc: deps.ProductSvc, logger: logger}
	api.GET("/products", products.list)
	api.GET("/products/:handle", products.get)

	return router, nil
}
