package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"marketim/internal/identity"
	"marketim/internal/model"
	"marketim/internal/service"

	"github.com/rs/zerolog"
)

// StockHandler handles administrative stock adjustment requests.
type StockHandler struct {
	service service.StockService
	logger  zerolog.Logger
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(service service.StockService, logger zerolog.Logger) *StockHandler {
	return &StockHandler{
		service: service,
		logger:  logger.With().Str("handler", "stock").Logger(),
	}
}

// Adjust handles POST /api/admin/stock/adjust requests.
func (h *StockHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	var req model.StockAdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}

	actor := "ADMIN"
	if principal := identity.FromContext(r.Context()); principal != nil {
		actor = principal.Email
	}

	movement, err := h.service.Adjust(r.Context(), &req, actor)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, movement)
}

// ListMovements handles GET /api/admin/stock/{productId}/movements requests.
func (h *StockHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	idStr := strings.TrimPrefix(r.URL.Path, "/api/admin/stock/")
	idStr = strings.TrimSuffix(idStr, "/movements")
	if idStr == "" || strings.Contains(idStr, "/") {
		writeError(w, http.StatusBadRequest, "product ID is required", h.logger)
		return
	}

	productID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID format", h.logger)
		return
	}

	limit := parseQueryInt(r, "limit", 0)
	offset := parseQueryInt(r, "offset", 0)

	movements, err := h.service.ListByProduct(r.Context(), productID, limit, offset)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, movements)
}
