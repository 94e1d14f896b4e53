package handler

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rl1809/storefront/internal/adapter/auth"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

// CatalogItemDTO is the wire form of a catalog item. Stock is nil, and so
// left out of the JSON, for callers who are not admins.
type CatalogItemDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       *int      `json:"stock,omitempty"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toCatalogItemDTO(item domain.CatalogItem, role domain.Role) CatalogItemDTO {
	dto := CatalogItemDTO{
		ID:          item.ID,
		Name:        item.Name,
		Category:    item.Category,
		Description: item.Description,
		Price:       item.Price,
		OwnerID:     item.OwnerID,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	if role.IsAdmin() {
		stock := item.Stock
		dto.Stock = &stock
	}
	return dto
}

func toCatalogItemDTOs(items []domain.CatalogItem, role domain.Role) []CatalogItemDTO {
	out := make([]CatalogItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, toCatalogItemDTO(item, role))
	}
	return out
}

type CreateCatalogItemRequest struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

type UpdateCatalogItemRequest struct {
	Name        *string          `json:"name"`
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
	Price       *float64         `json:"price"`
	Stock       *json.RawMessage `json:"stock"`
}

type QuantityRequest struct {
	Quantity any `json:"quantity"`
}

func (h *HTTPHandler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.List(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCatalogItemDTOs(items, auth.FromContext(r.Context()).Role))
}

func (h *HTTPHandler) SearchCatalog(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.CatalogFilter{
		Query:    strings.TrimSpace(query.Get("q")),
		Category: strings.TrimSpace(query.Get("category")),
	}

	var err error
	if filter.MinPrice, err = parsePrice(query.Get("minPrice"), "minPrice"); err != nil {
		h.handleError(w, r, err)
		return
	}
	if filter.MaxPrice, err = parsePrice(query.Get("maxPrice"), "maxPrice"); err != nil {
		h.handleError(w, r, err)
		return
	}

	items, err := h.catalog.Search(r.Context(), filter)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCatalogItemDTOs(items, auth.FromContext(r.Context()).Role))
}

func (h *HTTPHandler) GetCatalogItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCatalogItemDTO(*item, auth.FromContext(r.Context()).Role))
}

func (h *HTTPHandler) CreateCatalogItem(w http.ResponseWriter, r *http.Request) {
	var req CreateCatalogItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	caller := auth.FromContext(r.Context())
	item, err := h.catalog.Create(r.Context(), caller.Identity, service.NewCatalogItem{
		Name:        strings.TrimSpace(req.Name),
		Category:    strings.TrimSpace(req.Category),
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCatalogItemDTO(*item, caller.Role))
}

func (h *HTTPHandler) UpdateCatalogItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateCatalogItemRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}
	if req.Stock != nil {
		h.handleError(w, r, domain.Validationf("stock cannot be edited directly, use purchase or restock"))
		return
	}

	caller := auth.FromContext(r.Context())
	item, err := h.catalog.Update(r.Context(), caller.Identity, chi.URLParam(r, "id"), domain.CatalogPatch{
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCatalogItemDTO(*item, caller.Role))
}

func (h *HTTPHandler) DeleteCatalogItem(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Purchase takes stock for the caller. A missing quantity means one unit;
// an Idempotency-Key header makes retries of the same request safe.
func (h *HTTPHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req QuantityRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	quantity := 1
	if req.Quantity != nil {
		q, ok := service.ParseQuantity(req.Quantity)
		if !ok {
			h.handleError(w, r, domain.ErrInvalidQuantity)
			return
		}
		quantity = q
	}

	caller := auth.FromContext(r.Context())
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))

	item, err := h.ledger.PurchaseOnce(r.Context(), caller.Identity.ID, key, chi.URLParam(r, "id"), quantity)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCatalogItemDTO(*item, caller.Role))
}

func (h *HTTPHandler) Restock(w http.ResponseWriter, r *http.Request) {
	var req QuantityRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	quantity, ok := service.ParseQuantity(req.Quantity)
	if !ok {
		h.handleError(w, r, domain.ErrInvalidQuantity)
		return
	}

	item, err := h.ledger.Restock(r.Context(), chi.URLParam(r, "id"), quantity)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCatalogItemDTO(*item, auth.FromContext(r.Context()).Role))
}

func parsePrice(raw, name string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, domain.Validationf("%s must be a non-negative number", name)
	}
	return &v, nil
}
