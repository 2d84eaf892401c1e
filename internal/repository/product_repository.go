package repository

import (
	"context"
	"fmt"

	"marketim/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// GetAll retrieves active products with pagination support.
func (r *productRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	query := `
		SELECT id, name, description, price, stock, unit_label, image_url, active, category_id, created_at
		FROM products
		WHERE active = TRUE
		ORDER BY lower(name)
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	query := `
		SELECT id, name, description, price, stock, unit_label, image_url, active, category_id, created_at
		FROM products
		WHERE id = $1
	`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Int64("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return p, nil
}

// GetByIDs retrieves multiple products by their IDs within the provided
// transaction.
func (r *productRepository) GetByIDs(ctx context.Context, tx pgx.Tx, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := `
		SELECT id, name, description, price, stock, unit_label, image_url, active, category_id, created_at
		FROM products
		WHERE id = ANY($1)
	`

	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, fmt.Errorf("failed to query products by IDs: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// GetByIDWithCategory retrieves a product with its category state within the
// provided transaction.
func (r *productRepository) GetByIDWithCategory(ctx context.Context, tx pgx.Tx, id int64) (*model.Product, error) {
	query := `
		SELECT p.id, p.name, p.description, p.price, p.stock, p.unit_label, p.image_url,
		       p.active, p.category_id, p.created_at,
		       c.id, c.name, c.active
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`

	var p model.Product
	var c model.Category
	err := tx.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.UnitLabel, &p.ImageURL,
		&p.Active, &p.CategoryID, &p.CreatedAt,
		&c.ID, &c.Name, &c.Active,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Int64("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to query product with category")
		return nil, fmt.Errorf("failed to query product with category: %w", err)
	}

	p.Category = &c
	return &p, nil
}

// DecreaseStockIfAvailable atomically decrements stock by qty if the product
// is active and has enough stock. The RETURNING clause yields the post-
// decrement stock from the same statement, so before/after values in the
// ledger never observe an unrelated concurrent change.
func (r *productRepository) DecreaseStockIfAvailable(ctx context.Context, tx pgx.Tx, id int64, qty int) (int, bool, error) {
	query := `
		UPDATE products
		SET stock = stock - $2
		WHERE id = $1
		  AND active = TRUE
		  AND stock >= $2
		RETURNING stock
	`

	var newStock int
	err := tx.QueryRow(ctx, query, id, qty).Scan(&newStock)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Warn().
				Int64("product_id", id).
				Int("quantity", qty).
				Msg("stock reservation lost")
			return 0, false, nil
		}
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to decrease stock")
		return 0, false, fmt.Errorf("failed to decrease stock: %w", err)
	}

	return newStock, true, nil
}

// IncreaseStock unconditionally increments stock by qty.
func (r *productRepository) IncreaseStock(ctx context.Context, tx pgx.Tx, id int64, qty int) (int, error) {
	query := `
		UPDATE products
		SET stock = stock + $2
		WHERE id = $1
		RETURNING stock
	`

	var newStock int
	err := tx.QueryRow(ctx, query, id, qty).Scan(&newStock)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, fmt.Errorf("failed to increase stock: product %d not found", id)
		}
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to increase stock")
		return 0, fmt.Errorf("failed to increase stock: %w", err)
	}

	return newStock, nil
}

// AdjustStock applies a signed delta, refusing adjustments that would drive
// stock negative.
func (r *productRepository) AdjustStock(ctx context.Context, tx pgx.Tx, id int64, delta int) (int, bool, error) {
	query := `
		UPDATE products
		SET stock = stock + $2
		WHERE id = $1
		  AND stock + $2 >= 0
		RETURNING stock
	`

	var newStock int
	err := tx.QueryRow(ctx, query, id, delta).Scan(&newStock)
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Warn().
				Int64("product_id", id).
				Int("delta", delta).
				Msg("stock adjustment rejected")
			return 0, false, nil
		}
		r.logger.Error().Err(err).Int64("product_id", id).Msg("failed to adjust stock")
		return 0, false, fmt.Errorf("failed to adjust stock: %w", err)
	}

	return newStock, true, nil
}

// scanProduct scans a product row in column order shared by the queries above.
func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.UnitLabel, &p.ImageURL,
		&p.Active, &p.CategoryID, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
