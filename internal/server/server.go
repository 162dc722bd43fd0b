// Package server assembles the reference backend the storefront client talks to.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/handlers"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/metrics"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/middleware"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/pricing"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/repository"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/service"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/pkg/logger"
)

// Options configure a Backend. Nil menu or coupons fall back to the seeded defaults.
type Options struct {
	Menu           []models.Category
	Coupons        []models.Coupon
	JWTSecret      string
	Version        string
	Pricing        pricing.Calculator
	RequestTimeout time.Duration
	Logger         *slog.Logger
	Metrics        *metrics.Collector
}

// Backend is the in-memory menu, cart, coupon and order service
type Backend struct {
	Menu    *repository.InMemoryMenuRepository
	Coupons *repository.InMemoryCouponRepository
	Orders  *service.OrderService

	handler http.Handler
}

// New builds the repositories, services and router
func New(opts Options) *Backend {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	if opts.Menu == nil {
		opts.Menu = repository.DefaultMenu()
	}
	if opts.Coupons == nil {
		opts.Coupons = repository.DefaultCoupons(time.Now())
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	menuRepo := repository.NewInMemoryMenuRepository(opts.Menu)
	couponRepo := repository.NewInMemoryCouponRepository(opts.Coupons)
	orderRepo := repository.NewInMemoryOrderRepository()

	menuService := service.NewMenuService(menuRepo)
	couponService := service.NewCouponService(couponRepo, orderRepo, nil)
	cartService := service.NewCartService(repository.NewInMemoryCartRepository(), menuService, log)
	orderService := service.NewOrderService(orderRepo, couponRepo, menuService, couponService, opts.Pricing, log)

	b := &Backend{
		Menu:    menuRepo,
		Coupons: couponRepo,
		Orders:  orderService,
	}
	b.handler = newRouter(opts, routes{
		health:  handlers.NewHealthHandler(opts.Version, log),
		menu:    handlers.NewMenuHandler(menuService, log),
		cart:    handlers.NewCartHandler(cartService, log),
		coupons: handlers.NewCouponHandler(couponService, log),
		orders:  handlers.NewOrderHandler(orderService, log),
	}, log)
	return b
}

// ServeHTTP implements http.Handler
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.handler.ServeHTTP(w, r)
}

type routes struct {
	health  *handlers.HealthHandler
	menu    *handlers.MenuHandler
	cart    *handlers.CartHandler
	coupons *handlers.CouponHandler
	orders  *handlers.OrderHandler
}

func newRouter(opts Options, h routes, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log, opts.Metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(opts.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.health.ServeHTTP)
	if opts.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Metrics.Registry(), promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/menu", h.menu.Menu)
		r.Get("/coupons", h.coupons.List)

		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(opts.JWTSecret))

			r.Get("/cart/{userId}", h.cart.Get)
			r.Put("/cart/{userId}", h.cart.Put)

			r.Get("/coupons/{couponId}/eligibility", h.coupons.Eligibility)

			r.Post("/orders", h.orders.CreateOrder)
			r.Post("/orders/{orderId}/cancel", h.orders.Cancel)
			r.Get("/users/{userId}/orders", h.orders.ListByUser)
		})
	})

	return r
}
