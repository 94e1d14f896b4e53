package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rl1809/storefront/internal/adapter/auth"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

type CartLineDTO struct {
	ItemID   string          `json:"itemId"`
	Quantity int             `json:"quantity"`
	Item     *CatalogItemDTO `json:"item,omitempty"`
}

type CartDTO struct {
	UserID    string        `json:"userId"`
	Items     []CartLineDTO `json:"items"`
	UpdatedAt *time.Time    `json:"updatedAt,omitempty"`
}

func toCartDTO(cart *domain.Cart) CartDTO {
	dto := CartDTO{UserID: cart.UserID, Items: make([]CartLineDTO, 0, len(cart.Items))}
	if !cart.UpdatedAt.IsZero() {
		dto.UpdatedAt = &cart.UpdatedAt
	}
	for _, line := range cart.Items {
		dto.Items = append(dto.Items, CartLineDTO{ItemID: line.ItemID, Quantity: line.Quantity})
	}
	return dto
}

func toResolvedCartDTO(cart *service.ResolvedCart, role domain.Role) CartDTO {
	dto := CartDTO{UserID: cart.UserID, Items: make([]CartLineDTO, 0, len(cart.Lines))}
	if !cart.UpdatedAt.IsZero() {
		dto.UpdatedAt = &cart.UpdatedAt
	}
	for _, line := range cart.Lines {
		out := CartLineDTO{ItemID: line.ItemID, Quantity: line.Quantity}
		if line.Item != nil {
			item := toCatalogItemDTO(*line.Item, role)
			out.Item = &item
		}
		dto.Items = append(dto.Items, out)
	}
	return dto
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	caller := auth.FromContext(r.Context())

	cart, err := h.carts.Get(r.Context(), caller.Identity.ID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toResolvedCartDTO(cart, caller.Role))
}

// AddToCart accepts a single line or {"items": [...]} in any of the shapes
// the cart normalizer understands.
func (h *HTTPHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var raw any
	if err := decodeBody(w, r, &raw); err != nil {
		h.handleError(w, r, err)
		return
	}

	cart, err := h.carts.Add(r.Context(), auth.FromContext(r.Context()).Identity.ID, service.Normalize(raw))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartDTO(cart))
}

func (h *HTTPHandler) ReplaceCart(w http.ResponseWriter, r *http.Request) {
	var raw any
	if err := decodeBody(w, r, &raw); err != nil {
		h.handleError(w, r, err)
		return
	}

	cart, err := h.carts.Replace(r.Context(), auth.FromContext(r.Context()).Identity.ID, service.Normalize(raw))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartDTO(cart))
}

func (h *HTTPHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.Remove(r.Context(), auth.FromContext(r.Context()).Identity.ID, chi.URLParam(r, "itemId"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartDTO(cart))
}
