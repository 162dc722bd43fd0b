package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/service"
)

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orderService *service.OrderService
	log          *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *service.OrderService, log *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		log:          log,
	}
}

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn("failed to decode order request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !authorize(w, r, req.UserID) {
		return
	}

	order, err := h.orderService.CreateOrder(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, models.OrderCreated{OrderID: order.ID})
}

// ListByUser handles GET /api/users/{userId}/orders
func (h *OrderHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !authorize(w, r, userID) {
		return
	}

	orders, err := h.orderService.ListByUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, "list orders", err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

// Cancel handles POST /api/orders/{orderId}/cancel
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req models.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !authorize(w, r, req.UserID) {
		return
	}

	if _, err := h.orderService.Cancel(r.Context(), req.UserID, chi.URLParam(r, "orderId")); err != nil {
		writeServiceError(w, h.log, "cancel order", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
