// Package httpapi - REST-шлюз к менеджерам каталога поверх chi.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecomstore/internal/manager"
)

const (
	defaultRateLimit = 100
	rateWindow       = time.Minute
	maxBodyBytes     = 1 << 20
)

// Handler обслуживает /api/* поверх менеджеров.
type Handler struct {
	products  manager.ProductManager
	customers manager.CustomerManager
	orders    manager.OrderManager
	logger    *log.Entry
	rateLimit int
	origins   []string
}

// Option настраивает Handler.
type Option func(*Handler)

// WithLogger задаёт логгер шлюза.
func WithLogger(logger *log.Entry) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithRateLimit задаёт лимит запросов в минуту с одного IP. 0 отключает лимит.
func WithRateLimit(perMinute int) Option {
	return func(h *Handler) {
		h.rateLimit = perMinute
	}
}

// WithCORS разрешает кросс-доменные запросы с перечисленных origin. Пустой список отключает CORS.
func WithCORS(origins []string) Option {
	return func(h *Handler) {
		h.origins = origins
	}
}

// NewHandler создаёт REST-шлюз.
func NewHandler(products manager.ProductManager, customers manager.CustomerManager, orders manager.OrderManager, opts ...Option) *Handler {
	h := &Handler{
		products:  products,
		customers: customers,
		orders:    orders,
		logger:    log.WithFields(log.Fields{"component": "rest-gateway", "layer": "http"}),
		rateLimit: defaultRateLimit,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes собирает роутер с middleware и всеми маршрутами /api.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		h.requestLogger,
		middleware.Recoverer,
	)
	if len(h.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}
	if h.rateLimit > 0 {
		r.Use(httprate.Limit(h.rateLimit, rateWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				writeError(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), nil)
			}),
		))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Post("/", h.createProduct)
			r.Get("/{id}", h.getProduct)
			r.Put("/{id}", h.updateProduct)
			r.Delete("/{id}", h.deleteProduct)
			r.Put("/{id}/stock", h.updateStock)
		})
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.listCustomers)
			r.Post("/", h.createCustomer)
			r.Get("/{id}", h.getCustomer)
			r.Put("/{id}", h.updateCustomer)
			r.Delete("/{id}", h.deleteCustomer)
			r.Post("/{id}/deactivate", h.deactivateCustomer)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Post("/", h.createOrder)
			r.Post("/total", h.calculateOrderTotal)
			r.Get("/{id}", h.getOrder)
			r.Put("/{id}", h.updateOrder)
			r.Put("/{id}/status", h.updateOrderStatus)
			r.Post("/{id}/cancel", h.cancelOrder)
		})
	})

	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.logger.WithFields(log.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(started).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		}).Debug("http request")
	})
}
