package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/models"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/service"
)

// CouponHandler handles HTTP requests for coupons
type CouponHandler struct {
	coupons *service.CouponService
	log     *slog.Logger
}

// NewCouponHandler creates a new CouponHandler
func NewCouponHandler(coupons *service.CouponService, log *slog.Logger) *CouponHandler {
	return &CouponHandler{
		coupons: coupons,
		log:     log,
	}
}

// List handles GET /api/coupons
func (h *CouponHandler) List(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.List(r.Context())
	if err != nil {
		writeServiceError(w, h.log, "list coupons", err)
		return
	}
	if coupons == nil {
		coupons = []models.Coupon{}
	}
	writeJSON(w, http.StatusOK, coupons)
}

// Eligibility handles GET /api/coupons/{couponId}/eligibility?userId=
func (h *CouponHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if !authorize(w, r, userID) {
		return
	}

	verdict, err := h.coupons.Eligibility(r.Context(), userID, chi.URLParam(r, "couponId"))
	if err != nil {
		writeServiceError(w, h.log, "coupon eligibility", err)
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}
