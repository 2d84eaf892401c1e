package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// settingRepository implements the SettingRepository interface using PostgreSQL.
type settingRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewSettingRepository creates a new PostgreSQL-backed setting repository.
func NewSettingRepository(pool *pgxpool.Pool, logger zerolog.Logger) SettingRepository {
	return &settingRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "setting").Logger(),
	}
}

// Get retrieves a setting value by key.
func (r *settingRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT setting_value FROM settings WHERE setting_key = $1`, key).Scan(&value)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", false, nil
		}
		r.logger.Error().Err(err).Str("key", key).Msg("failed to query setting")
		return "", false, fmt.Errorf("failed to query setting: %w", err)
	}
	return value, true, nil
}

// Upsert inserts or replaces a setting value.
func (r *settingRepository) Upsert(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (setting_key, setting_value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (setting_key) DO UPDATE
		SET setting_value = EXCLUDED.setting_value, updated_at = now()
	`

	_, err := r.pool.Exec(ctx, query, key, value)
	if err != nil {
		r.logger.Error().Err(err).Str("key", key).Msg("failed to upsert setting")
		return fmt.Errorf("failed to upsert setting: %w", err)
	}

	r.logger.Debug().Str("key", key).Msg("setting updated")
	return nil
}
