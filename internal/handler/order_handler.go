package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"marketim/internal/identity"
	"marketim/internal/model"
	"marketim/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests. Guests and authenticated
// customers use the same endpoint; the principal, when present, overrides
// the guest contact fields.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	var req model.OrderCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}

	order, err := h.service.Create(r.Context(), &req, identity.FromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// ListMine handles GET /api/orders/my requests.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	orders, err := h.service.ListMyOrders(r.Context(), identity.FromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// Cancel handles POST /api/orders/{id}/cancel requests.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	orderID, ok := parseOrderID(w, r.URL.Path, "/api/orders/", "/cancel", h.logger)
	if !ok {
		return
	}

	order, err := h.service.CancelMyOrder(r.Context(), orderID, identity.FromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// AdminList handles GET /api/admin/orders requests with optional status,
// limit and offset query parameters.
func (h *OrderHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	var status *model.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		candidate := model.OrderStatus(strings.ToUpper(raw))
		if !candidate.Valid() {
			writeError(w, http.StatusBadRequest, "invalid status filter", h.logger)
			return
		}
		status = &candidate
	}

	limit := parseQueryInt(r, "limit", 0)
	offset := parseQueryInt(r, "offset", 0)

	orders, err := h.service.AdminList(r.Context(), status, limit, offset)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// AdminGet handles GET /api/admin/orders/{id} requests.
func (h *OrderHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	orderID, ok := parseOrderID(w, r.URL.Path, "/api/admin/orders/", "", h.logger)
	if !ok {
		return
	}

	order, err := h.service.GetByIDAdmin(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// AdminSetStatus handles PATCH /api/admin/orders/{id}/status requests.
func (h *OrderHandler) AdminSetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPatch && r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	orderID, ok := parseOrderID(w, r.URL.Path, "/api/admin/orders/", "/status", h.logger)
	if !ok {
		return
	}

	var req model.OrderStatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}

	order, err := h.service.AdminSetStatus(r.Context(), orderID, model.OrderStatus(strings.ToUpper(req.Status)))
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// AdminStats handles GET /api/admin/orders/stats requests.
func (h *OrderHandler) AdminStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	stats, err := h.service.AdminStats(r.Context())
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// parseOrderID extracts and parses the order id segment between the route
// prefix and suffix. It writes the error response itself on failure.
func parseOrderID(w http.ResponseWriter, path, prefix, suffix string, logger zerolog.Logger) (uuid.UUID, bool) {
	idStr := strings.TrimPrefix(path, prefix)
	idStr = strings.TrimSuffix(idStr, suffix)
	if idStr == "" || strings.Contains(idStr, "/") {
		writeError(w, http.StatusBadRequest, "order ID is required", logger)
		return uuid.Nil, false
	}

	orderID, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID format", logger)
		return uuid.Nil, false
	}
	return orderID, true
}

// parseQueryInt reads an integer query parameter, falling back to def on a
// missing or malformed value.
func parseQueryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return value
}
