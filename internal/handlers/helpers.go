package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/middleware"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/service"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are already sent
		slog.Default().Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeServiceError maps a service failure to a status code. Rejections carry
// their customer-facing reason; anything else is logged and hidden.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrCouponNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrCancelNotAllowed),
		errors.Is(err, service.ErrPriceChanged),
		errors.Is(err, service.ErrTotalsMismatch):
		status = http.StatusConflict
	case errors.Is(err, service.ErrItemUnavailable), errors.Is(err, service.ErrInvalidCoupon):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidItem),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrMissingAddress),
		errors.Is(err, service.ErrInvalidPayment):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		log.Error(op+" failed", "error", err)
		writeError(w, status, "Internal server error")
		return
	}

	log.Info(op+" rejected", "status", status, "reason", err.Error())
	writeError(w, status, service.Reason(err, err.Error()))
}

// authorize checks that the authenticated caller is userID
func authorize(w http.ResponseWriter, r *http.Request, userID string) bool {
	caller, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	if userID == "" || caller != userID {
		writeError(w, http.StatusForbidden, "forbidden: not your account")
		return false
	}
	return true
}
