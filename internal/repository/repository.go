package repository

import (
	"context"

	"marketim/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProductRepository defines catalogue data access. Methods taking a pgx.Tx
// participate in the caller's transaction; the stock mutations are single
// conditional statements so concurrent orders cannot both win the last unit.
type ProductRepository interface {
	// GetAll retrieves active products with pagination support.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by its ID.
	GetByID(ctx context.Context, id int64) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs within the
	// provided transaction.
	GetByIDs(ctx context.Context, tx pgx.Tx, ids []int64) ([]model.Product, error)

	// GetByIDWithCategory retrieves a product together with its category's
	// active flag within the provided transaction.
	GetByIDWithCategory(ctx context.Context, tx pgx.Tx, id int64) (*model.Product, error)

	// DecreaseStockIfAvailable atomically decrements stock by qty if the
	// product is active and has at least qty in stock. Returns the stock
	// level after the decrement and whether a row was affected; ok=false
	// means the reservation was lost.
	DecreaseStockIfAvailable(ctx context.Context, tx pgx.Tx, id int64, qty int) (newStock int, ok bool, err error)

	// IncreaseStock unconditionally increments stock by qty and returns the
	// new stock level.
	IncreaseStock(ctx context.Context, tx pgx.Tx, id int64, qty int) (newStock int, err error)

	// AdjustStock applies a signed delta if the resulting stock stays
	// non-negative. ok=false means the adjustment would go below zero.
	AdjustStock(ctx context.Context, tx pgx.Tx, id int64, delta int) (newStock int, ok bool, err error)
}

// OrderRepository defines order data access. Order creation and status
// changes run inside one transaction started with BeginTx.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// Create inserts a new order within the provided transaction.
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateLines inserts the order's lines within the provided transaction.
	CreateLines(ctx context.Context, tx pgx.Tx, lines []model.OrderLine) error

	// GetByIDWithLines retrieves an order and its lines. Returns nil when
	// the order does not exist.
	GetByIDWithLines(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByIDForUpdate retrieves an order and its lines within the provided
	// transaction, locking the order row for the transaction's duration.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// UpdateStatus sets the order's status within the provided transaction.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus) error

	// ListByUser retrieves a registered customer's orders, newest first.
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)

	// AdminList retrieves condensed order rows, optionally filtered by
	// status, newest first.
	AdminList(ctx context.Context, status *model.OrderStatus, limit, offset int) ([]model.AdminOrderListItem, error)

	// CountByStatus returns per-status order counts.
	CountByStatus(ctx context.Context) (*model.AdminOrderStats, error)
}

// StockMovementRepository is the append-only stock ledger. Movements are
// never updated or deleted.
type StockMovementRepository interface {
	// Append inserts a movement row within the provided transaction.
	Append(ctx context.Context, tx pgx.Tx, movement *model.StockMovement) error

	// ListByProduct retrieves a product's movements, newest first.
	ListByProduct(ctx context.Context, productID int64, limit, offset int) ([]model.StockMovement, error)
}

// SettingRepository persists store configuration as key/value rows.
type SettingRepository interface {
	// Get retrieves a setting value. found=false when the key has no row.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Upsert inserts or replaces a setting value.
	Upsert(ctx context.Context, key, value string) error
}
