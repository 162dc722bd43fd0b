package handlers

import (
	"log/slog"
	"net/http"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/service"
)

// MenuHandler serves the restaurant menu
type MenuHandler struct {
	menu *service.MenuService
	log  *slog.Logger
}

// NewMenuHandler creates a new menu handler
func NewMenuHandler(menu *service.MenuService, log *slog.Logger) *MenuHandler {
	return &MenuHandler{
		menu: menu,
		log:  log,
	}
}

// Menu handles GET /api/menu
func (h *MenuHandler) Menu(w http.ResponseWriter, r *http.Request) {
	categories, err := h.menu.Menu(r.Context())
	if err != nil {
		writeServiceError(w, h.log, "menu", err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}
