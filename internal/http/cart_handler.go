package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/autoparts-storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	timeout time.Duration
}

func NewCartHandler(timeout time.Duration) *CartHandler {
	return &CartHandler{timeout: timeout}
}

type AddItemRequestDTO struct {
	Product  domain.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, getShopper(r.Context()).Session.View())
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	req.Product.ID = strings.TrimSpace(req.Product.ID)
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Product.Price < 0 {
		respondError(w, http.StatusBadRequest, "invalid_item", "price must not be negative")
		return
	}

	sess := getShopper(r.Context()).Session
	if err := sess.AddItem(ctx, req.Product, req.Quantity); err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, sess.View())
}

// PUT /api/v1/cart/items/{id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "quantity is required")
		return
	}

	sess := getShopper(r.Context()).Session
	if err := sess.SetQuantity(ctx, chi.URLParam(r, "id"), *req.Quantity); err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, sess.View())
}

// DELETE /api/v1/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := getShopper(r.Context()).Session
	if err := sess.RemoveItem(ctx, chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, sess.View())
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess := getShopper(r.Context()).Session
	if err := sess.Clear(ctx); err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, sess.View())
}
