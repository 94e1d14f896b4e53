package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/adapter/auth"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

const maxBodyBytes = 1 << 20

type Options struct {
	RequestTimeout time.Duration
	RetryAfter     time.Duration
	Metrics        http.Handler
}

type HTTPHandler struct {
	catalog *service.CatalogService
	ledger  *service.InventoryLedger
	carts   *service.CartAggregator
	gate    *auth.AccessGate
	ready   Readiness
	opts    Options
	logger  *zap.Logger
}

func NewHTTPHandler(
	catalog *service.CatalogService,
	ledger *service.InventoryLedger,
	carts *service.CartAggregator,
	gate *auth.AccessGate,
	ready Readiness,
	opts Options,
	logger *zap.Logger,
) *HTTPHandler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.RetryAfter <= 0 {
		opts.RetryAfter = 5 * time.Second
	}
	return &HTTPHandler{
		catalog: catalog,
		ledger:  ledger,
		carts:   carts,
		gate:    gate,
		ready:   ready,
		opts:    opts,
		logger:  logger,
	}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)
	if h.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(AvailabilityGate(h.ready, h.opts.RetryAfter))
		r.Use(middleware.Timeout(h.opts.RequestTimeout))
		r.Use(Authenticate(h.gate))

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", h.ListCatalog)
			r.Get("/search", h.SearchCatalog)
			r.Get("/{id}", h.GetCatalogItem)
			r.With(RequireUser).Post("/", h.CreateCatalogItem)
			r.With(RequireUser).Put("/{id}", h.UpdateCatalogItem)
			r.With(RequireAdmin).Delete("/{id}", h.DeleteCatalogItem)
			r.With(RequireUser).Post("/{id}/purchase", h.Purchase)
			r.With(RequireAdmin).Post("/{id}/restock", h.Restock)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(RequireUser)
			r.Get("/", h.GetCart)
			r.Post("/", h.AddToCart)
			r.Put("/", h.ReplaceCart)
			r.Delete("/{itemId}", h.RemoveFromCart)
		})
	})

	return r
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	if !h.ready.IsReady() {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, map[string]string{"state": h.ready.State().String()})
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Available *int   `json:"available,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// handleError maps service errors onto HTTP statuses. Anything it does not
// recognise is logged and reported as a 500 without the internal message.
func (h *HTTPHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var stockErr *domain.InsufficientStockError

	switch {
	case errors.As(err, &stockErr):
		available := stockErr.Available
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:     err.Error(),
			Code:      "insufficient_stock",
			Available: &available,
		})
	case errors.Is(err, domain.ErrValidation):
		respondError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrDuplicateRequest):
		respondError(w, http.StatusConflict, "duplicate_request", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		w.Header().Set("Retry-After", "5")
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "the data store is not available")
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// decodeBody reads a JSON body into dst. An empty body leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.Validationf("invalid JSON body")
	}
	return nil
}
