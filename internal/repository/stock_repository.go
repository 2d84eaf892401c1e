package repository

import (
	"context"
	"fmt"

	"marketim/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// stockMovementRepository implements the StockMovementRepository interface
// using PostgreSQL. The table is insert-only; there are no update or delete
// statements here on purpose.
type stockMovementRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewStockMovementRepository creates a new PostgreSQL-backed stock ledger.
func NewStockMovementRepository(pool *pgxpool.Pool, logger zerolog.Logger) StockMovementRepository {
	return &stockMovementRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "stock_movement").Logger(),
	}
}

// Append inserts a movement row within the provided transaction.
func (r *stockMovementRepository) Append(ctx context.Context, tx pgx.Tx, movement *model.StockMovement) error {
	query := `
		INSERT INTO stock_movements (
			product_id, type, delta, before_stock, after_stock,
			reference_type, reference_id, note, actor, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := tx.Exec(ctx, query,
		movement.ProductID, movement.Type, movement.Delta,
		movement.BeforeStock, movement.AfterStock,
		movement.ReferenceType, movement.ReferenceID,
		movement.Note, movement.Actor, movement.CreatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Int64("product_id", movement.ProductID).
			Str("type", string(movement.Type)).
			Msg("failed to append stock movement")
		return fmt.Errorf("failed to append stock movement: %w", err)
	}

	r.logger.Debug().
		Int64("product_id", movement.ProductID).
		Str("type", string(movement.Type)).
		Int("delta", movement.Delta).
		Msg("stock movement appended")

	return nil
}

// ListByProduct retrieves a product's movements, newest first.
func (r *stockMovementRepository) ListByProduct(ctx context.Context, productID int64, limit, offset int) ([]model.StockMovement, error) {
	query := `
		SELECT id, product_id, type, delta, before_stock, after_stock,
		       COALESCE(reference_type, ''), COALESCE(reference_id, ''),
		       COALESCE(note, ''), COALESCE(actor, ''), created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, productID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Int64("product_id", productID).Msg("failed to query stock movements")
		return nil, fmt.Errorf("failed to query stock movements: %w", err)
	}
	defer rows.Close()

	var movements []model.StockMovement
	for rows.Next() {
		var m model.StockMovement
		err := rows.Scan(
			&m.ID, &m.ProductID, &m.Type, &m.Delta, &m.BeforeStock, &m.AfterStock,
			&m.ReferenceType, &m.ReferenceID, &m.Note, &m.Actor, &m.CreatedAt,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan stock movement row")
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating stock movement rows")
		return nil, fmt.Errorf("error iterating stock movements: %w", err)
	}

	return movements, nil
}
