package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"marketim/internal/settings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// StoreSettingsResponse is the public snapshot of storefront configuration.
type StoreSettingsResponse struct {
	StoreName                string          `json:"storeName"`
	StorePhone               string          `json:"storePhone,omitempty"`
	StoreAddress             string          `json:"storeAddress,omitempty"`
	OrderAcceptingEnabled    bool            `json:"orderAcceptingEnabled"`
	OrderClosedMessage       string          `json:"orderClosedMessage,omitempty"`
	WorkingHoursEnabled      bool            `json:"workingHoursEnabled"`
	WorkingHoursStart        string          `json:"workingHoursStart"`
	WorkingHoursEnd          string          `json:"workingHoursEnd"`
	MinOrderAmount           decimal.Decimal `json:"minOrderAmount"`
	DeliveryFee              decimal.Decimal `json:"deliveryFee"`
	DeliveryFreeThreshold    decimal.Decimal `json:"deliveryFreeThreshold"`
	PaymentOnDeliveryEnabled bool            `json:"paymentOnDeliveryEnabled"`
	PaymentMethods           []string        `json:"paymentMethods"`
	EstimatedDeliveryMinutes string          `json:"estimatedDeliveryMinutes,omitempty"`
}

// SettingsUpdateRequest carries admin setting writes as raw key/value pairs.
// Keys outside the known set are rejected.
type SettingsUpdateRequest struct {
	Settings map[string]string `json:"settings"`
}

// SettingsHandler serves the public settings snapshot and admin writes.
type SettingsHandler struct {
	provider settings.Provider
	logger   zerolog.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(provider settings.Provider, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		provider: provider,
		logger:   logger.With().Str("handler", "settings").Logger(),
	}
}

// knownKeys is the set of setting keys an admin may write.
var knownKeys = map[string]struct{}{
	settings.KeyOrderAcceptingEnabled:    {},
	settings.KeyOrderClosedMessage:       {},
	settings.KeyWorkingHoursEnabled:      {},
	settings.KeyWorkingHoursStart:        {},
	settings.KeyWorkingHoursEnd:          {},
	settings.KeyMinOrderAmount:           {},
	settings.KeyPaymentOnDeliveryEnabled: {},
	settings.KeyPaymentOnDeliveryMethods: {},
	settings.KeyDeliveryFeeFixed:         {},
	settings.KeyDeliveryFreeThreshold:    {},
	settings.KeyStoreName:                {},
	settings.KeyStorePhone:               {},
	settings.KeyStoreAddress:             {},
	settings.KeyEstimatedDeliveryMinutes: {},
}

// decimalKeys must parse as non-negative decimals before being written.
var decimalKeys = map[string]struct{}{
	settings.KeyMinOrderAmount:        {},
	settings.KeyDeliveryFeeFixed:      {},
	settings.KeyDeliveryFreeThreshold: {},
}

// GetPublic handles GET /api/settings requests.
func (h *SettingsHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	ctx := r.Context()
	resp := StoreSettingsResponse{}
	var err error

	if resp.StoreName, err = h.provider.GetString(ctx, settings.KeyStoreName, ""); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	resp.StorePhone, _ = h.provider.GetString(ctx, settings.KeyStorePhone, "")
	resp.StoreAddress, _ = h.provider.GetString(ctx, settings.KeyStoreAddress, "")
	resp.OrderAcceptingEnabled, _ = h.provider.GetBool(ctx, settings.KeyOrderAcceptingEnabled, true)
	resp.OrderClosedMessage, _ = h.provider.GetString(ctx, settings.KeyOrderClosedMessage, "")
	resp.WorkingHoursEnabled, _ = h.provider.GetBool(ctx, settings.KeyWorkingHoursEnabled, false)
	resp.WorkingHoursStart, _ = h.provider.GetString(ctx, settings.KeyWorkingHoursStart, "")
	resp.WorkingHoursEnd, _ = h.provider.GetString(ctx, settings.KeyWorkingHoursEnd, "")
	resp.MinOrderAmount, _ = h.provider.GetDecimal(ctx, settings.KeyMinOrderAmount, decimal.Zero)
	resp.DeliveryFee, _ = h.provider.GetDecimal(ctx, settings.KeyDeliveryFeeFixed, decimal.Zero)
	resp.DeliveryFreeThreshold, _ = h.provider.GetDecimal(ctx, settings.KeyDeliveryFreeThreshold, decimal.Zero)
	resp.PaymentOnDeliveryEnabled, _ = h.provider.GetBool(ctx, settings.KeyPaymentOnDeliveryEnabled, true)
	resp.EstimatedDeliveryMinutes, _ = h.provider.GetString(ctx, settings.KeyEstimatedDeliveryMinutes, "")

	methods, _ := h.provider.GetString(ctx, settings.KeyPaymentOnDeliveryMethods, "CASH")
	for _, m := range strings.Split(methods, ",") {
		if m = strings.TrimSpace(m); m != "" {
			resp.PaymentMethods = append(resp.PaymentMethods, strings.ToUpper(m))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Update handles PUT /api/admin/settings requests.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPatch {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	var req SettingsUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}
	if len(req.Settings) == 0 {
		writeError(w, http.StatusBadRequest, "no settings provided", h.logger)
		return
	}

	for key := range req.Settings {
		if _, ok := knownKeys[key]; !ok {
			writeError(w, http.StatusBadRequest, "unknown setting key: "+key, h.logger)
			return
		}
	}

	ctx := r.Context()
	for key, value := range req.Settings {
		var err error
		if _, isDecimal := decimalKeys[key]; isDecimal {
			parsed, parseErr := decimal.NewFromString(strings.TrimSpace(value))
			if parseErr != nil {
				writeError(w, http.StatusBadRequest, "invalid decimal value for "+key, h.logger)
				return
			}
			err = h.provider.SetDecimal(ctx, key, parsed)
		} else {
			err = h.provider.SetString(ctx, key, value)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), h.logger)
			return
		}
	}

	h.logger.Info().Int("count", len(req.Settings)).Msg("settings updated")
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
