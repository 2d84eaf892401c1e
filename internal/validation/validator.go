// Package validation holds the order-creation business rules. The validator
// is read-only: it consults settings but never mutates anything, and it stops
// at the first failed rule.
package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketim/internal/identity"
	"marketim/internal/model"
	"marketim/internal/settings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// OrderValidator checks order-creation requests against the identity context
// and store configuration.
type OrderValidator struct {
	settings settings.Provider
	validate *validator.Validate
	logger   zerolog.Logger

	// Now is the clock used for working-hours checks. Overridable in tests.
	Now func() time.Time
}

// NewOrderValidator creates an order validator backed by the given settings
// provider.
func NewOrderValidator(provider settings.Provider, logger zerolog.Logger) *OrderValidator {
	return &OrderValidator{
		settings: provider,
		validate: validator.New(),
		logger:   logger.With().Str("component", "order_validator").Logger(),
		Now:      time.Now,
	}
}

// ValidateCreate runs all creation rules in order, returning the first
// violation as a domain error. Rules, in order: guest contact fields, item
// shape, store accepting orders, working hours, payment method.
func (v *OrderValidator) ValidateCreate(ctx context.Context, req *model.OrderCreateRequest, principal *identity.Principal) error {
	if req == nil {
		return model.NewInvalidOrderRequest("order request is required")
	}

	if principal == nil {
		if err := v.checkGuestFields(req); err != nil {
			return err
		}
	}

	if err := v.checkItems(req); err != nil {
		return err
	}

	accepting, err := v.settings.GetBool(ctx, settings.KeyOrderAcceptingEnabled, true)
	if err != nil {
		return err
	}
	if !accepting {
		return model.ErrOrderAcceptingClosed
	}

	if err := v.checkWorkingHours(ctx); err != nil {
		return err
	}

	return v.checkPaymentMethod(ctx, req)
}

// checkGuestFields requires name, email and contact phone for guest orders.
func (v *OrderValidator) checkGuestFields(req *model.OrderCreateRequest) error {
	if strings.TrimSpace(req.GuestName) == "" {
		return model.NewInvalidOrderRequest("Guest orders require a full name")
	}
	if strings.TrimSpace(req.GuestEmail) == "" {
		return model.NewInvalidOrderRequest("Guest orders require an email address")
	}
	if strings.TrimSpace(req.ContactPhone) == "" {
		return model.NewInvalidOrderRequest("Guest orders require a contact phone number")
	}
	return nil
}

// checkItems validates the item list shape via struct tags: at least one
// item, and every item with a product id and quantity >= 1.
func (v *OrderValidator) checkItems(req *model.OrderCreateRequest) error {
	err := v.validate.StructPartial(req, "Items")
	if err == nil {
		return nil
	}

	var violations validator.ValidationErrors
	if !errors.As(err, &violations) {
		return fmt.Errorf("failed to validate order items: %w", err)
	}

	for _, violation := range violations {
		if violation.StructField() == "Items" {
			return model.ErrOrderItemsEmpty
		}
	}
	return model.NewInvalidOrderRequest("Every item requires a product id and a quantity of at least 1")
}

// checkWorkingHours enforces the configured [start, end) window when working
// hours are enabled. A window whose start equals its end is always open; a
// window whose start is after its end wraps past midnight.
func (v *OrderValidator) checkWorkingHours(ctx context.Context) error {
	enabled, err := v.settings.GetBool(ctx, settings.KeyWorkingHoursEnabled, false)
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}

	startStr, err := v.settings.GetString(ctx, settings.KeyWorkingHoursStart, "09:00")
	if err != nil {
		return err
	}
	endStr, err := v.settings.GetString(ctx, settings.KeyWorkingHoursEnd, "22:00")
	if err != nil {
		return err
	}

	start, err := minutesOfDay(startStr)
	if err != nil {
		v.logger.Warn().Str("value", startStr).Msg("unparsable working-hours start, skipping check")
		return nil
	}
	end, err := minutesOfDay(endStr)
	if err != nil {
		v.logger.Warn().Str("value", endStr).Msg("unparsable working-hours end, skipping check")
		return nil
	}

	now := v.Now()
	nowMinutes := now.Hour()*60 + now.Minute()

	var open bool
	switch {
	case start == end:
		open = true
	case start < end:
		open = nowMinutes >= start && nowMinutes < end
	default:
		open = nowMinutes >= start || nowMinutes < end
	}

	if !open {
		message, err := v.settings.GetString(ctx, settings.KeyOrderClosedMessage, "The store is closed right now")
		if err != nil {
			return err
		}
		return model.NewStoreClosed(message)
	}
	return nil
}

// checkPaymentMethod requires a selected method, pay-on-delivery enabled,
// and membership in the configured allow-list.
func (v *OrderValidator) checkPaymentMethod(ctx context.Context, req *model.OrderCreateRequest) error {
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		return model.ErrPaymentMethodMissing
	}

	enabled, err := v.settings.GetBool(ctx, settings.KeyPaymentOnDeliveryEnabled, true)
	if err != nil {
		return err
	}
	if !enabled {
		return model.ErrPayOnDeliveryClosed
	}

	allowed, err := v.settings.GetString(ctx, settings.KeyPaymentOnDeliveryMethods, "CASH,CARD")
	if err != nil {
		return err
	}

	for _, candidate := range strings.Split(allowed, ",") {
		if strings.EqualFold(strings.TrimSpace(candidate), method) {
			return nil
		}
	}
	return model.NewPaymentMethodRejected(method)
}

// minutesOfDay parses "HH:MM" into minutes since midnight.
func minutesOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
