// Package settings exposes store configuration as typed values backed by the
// settings table, with a process-wide read-through cache. Every write
// invalidates the whole cache, so a read after a write from the same process
// always sees the fresh value.
package settings

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"marketim/internal/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Setting keys consumed by the order workflow and the public settings view.
const (
	KeyOrderAcceptingEnabled     = "ORDER_ACCEPTING_ENABLED"
	KeyOrderClosedMessage        = "ORDER_CLOSED_MESSAGE"
	KeyWorkingHoursEnabled       = "WORKING_HOURS_ENABLED"
	KeyWorkingHoursStart         = "WORKING_HOURS_START"
	KeyWorkingHoursEnd           = "WORKING_HOURS_END"
	KeyMinOrderAmount            = "MIN_ORDER_AMOUNT"
	KeyPaymentOnDeliveryEnabled  = "PAYMENT_ON_DELIVERY_ENABLED"
	KeyPaymentOnDeliveryMethods  = "PAYMENT_ON_DELIVERY_METHODS"
	KeyDeliveryFeeFixed          = "DELIVERY_FEE_FIXED"
	KeyDeliveryFreeThreshold     = "DELIVERY_FREE_THRESHOLD"
	KeyStoreName                 = "STORE_NAME"
	KeyStorePhone                = "STORE_PHONE"
	KeyStoreAddress              = "STORE_ADDRESS"
	KeyEstimatedDeliveryMinutes  = "ESTIMATED_DELIVERY_MINUTES"
)

// Provider returns typed configuration values with defaults and accepts
// writes that invalidate the cache.
type Provider interface {
	GetDecimal(ctx context.Context, key string, def decimal.Decimal) (decimal.Decimal, error)
	GetBool(ctx context.Context, key string, def bool) (bool, error)
	GetString(ctx context.Context, key, def string) (string, error)

	SetDecimal(ctx context.Context, key string, value decimal.Decimal) error
	SetBool(ctx context.Context, key string, value bool) error
	SetString(ctx context.Context, key, value string) error
}

// cachedProvider is a read-through cache over the setting repository.
type cachedProvider struct {
	repo   repository.SettingRepository
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[string]string
}

// NewProvider creates a cached settings provider.
func NewProvider(repo repository.SettingRepository, logger zerolog.Logger) Provider {
	return &cachedProvider{
		repo:   repo,
		logger: logger.With().Str("component", "settings").Logger(),
		cache:  make(map[string]string),
	}
}

// GetDecimal returns the decimal value for key, or def when the key is absent
// or unparsable.
func (p *cachedProvider) GetDecimal(ctx context.Context, key string, def decimal.Decimal) (decimal.Decimal, error) {
	raw, found, err := p.lookup(ctx, key)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !found {
		return def, nil
	}
	value, parseErr := decimal.NewFromString(strings.TrimSpace(raw))
	if parseErr != nil {
		p.logger.Warn().Str("key", key).Str("value", raw).Msg("unparsable decimal setting, using default")
		return def, nil
	}
	return value, nil
}

// GetBool returns the boolean value for key, or def when the key is absent.
// Only the literal "true" (case-insensitive) counts as true.
func (p *cachedProvider) GetBool(ctx context.Context, key string, def bool) (bool, error) {
	raw, found, err := p.lookup(ctx, key)
	if err != nil {
		return false, err
	}
	if !found {
		return def, nil
	}
	return strings.EqualFold(strings.TrimSpace(raw), "true"), nil
}

// GetString returns the string value for key, or def when the key is absent.
func (p *cachedProvider) GetString(ctx context.Context, key, def string) (string, error) {
	raw, found, err := p.lookup(ctx, key)
	if err != nil {
		return "", err
	}
	if !found {
		return def, nil
	}
	return raw, nil
}

// SetDecimal writes a non-negative decimal setting.
func (p *cachedProvider) SetDecimal(ctx context.Context, key string, value decimal.Decimal) error {
	if value.IsNegative() {
		return fmt.Errorf("setting %s must be >= 0", key)
	}
	return p.write(ctx, key, value.String())
}

// SetBool writes a boolean setting.
func (p *cachedProvider) SetBool(ctx context.Context, key string, value bool) error {
	if value {
		return p.write(ctx, key, "true")
	}
	return p.write(ctx, key, "false")
}

// SetString writes a string setting.
func (p *cachedProvider) SetString(ctx context.Context, key, value string) error {
	return p.write(ctx, key, value)
}

// lookup serves a raw value from the cache, falling back to the repository
// and populating the cache on a miss. Missing rows are not negatively cached
// so a later write is picked up immediately.
func (p *cachedProvider) lookup(ctx context.Context, key string) (string, bool, error) {
	p.mu.RLock()
	raw, ok := p.cache[key]
	p.mu.RUnlock()
	if ok {
		return raw, true, nil
	}

	raw, found, err := p.repo.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, nil
	}

	p.mu.Lock()
	p.cache[key] = raw
	p.mu.Unlock()

	return raw, true, nil
}

// write persists the value and drops the whole cache.
func (p *cachedProvider) write(ctx context.Context, key, value string) error {
	if err := p.repo.Upsert(ctx, key, value); err != nil {
		return err
	}

	p.mu.Lock()
	p.cache = make(map[string]string)
	p.mu.Unlock()

	p.logger.Debug().Str("key", key).Msg("settings cache invalidated")
	return nil
}
