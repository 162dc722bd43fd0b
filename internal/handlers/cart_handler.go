package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/service"
)

// CartHandler serves the authoritative per-user cart
type CartHandler struct {
	carts *service.CartService
	log   *slog.Logger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts *service.CartService, log *slog.Logger) *CartHandler {
	return &CartHandler{
		carts: carts,
		log:   log,
	}
}

// Get handles GET /api/cart/{userId}
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !authorize(w, r, userID) {
		return
	}

	lines, err := h.carts.Lines(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, "get cart", err)
		return
	}
	if lines == nil {
		lines = []models.CartLine{}
	}
	writeJSON(w, http.StatusOK, models.CartResponse{Items: lines})
}

// Put handles PUT /api/cart/{userId}. Lines are absolute values and a null line deletes.
func (h *CartHandler) Put(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !authorize(w, r, userID) {
		return
	}

	var update models.CartUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(update.Items) == 0 {
		writeError(w, http.StatusBadRequest, "No cart lines to update")
		return
	}

	if err := h.carts.Update(r.Context(), userID, update.Items); err != nil {
		writeServiceError(w, h.log, "update cart", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
