package repository

import (
	"context"
	"fmt"

	"marketim/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// Create inserts a new order within the provided transaction.
func (r *orderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, user_id, customer_name, customer_email, guest_name, guest_email,
			status, payment_method, subtotal_amount, delivery_fee, total_amount,
			delivery_address, note, contact_phone, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	var userID *int64
	var customerName, customerEmail, guestName, guestEmail *string
	switch o := order.Orderer.(type) {
	case model.RegisteredOrderer:
		userID = &o.UserID
		customerName = &o.FullName
		customerEmail = &o.Email
	case model.GuestOrderer:
		guestName = &o.Name
		guestEmail = &o.Email
	}

	_, err := tx.Exec(ctx, query,
		order.ID, userID, customerName, customerEmail, guestName, guestEmail,
		order.Status, order.PaymentMethod, order.SubtotalAmount, order.DeliveryFee, order.TotalAmount,
		order.DeliveryAddress, order.Note, order.ContactPhone, order.CreatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Msg("order created")

	return nil
}

// CreateLines inserts the order's lines within the provided transaction.
func (r *orderRepository) CreateLines(ctx context.Context, tx pgx.Tx, lines []model.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_lines (id, order_id, product_id, product_name, unit_label, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	batch := &pgx.Batch{}
	for _, line := range lines {
		batch.Queue(query,
			line.ID, line.OrderID, line.ProductID, line.ProductName,
			line.UnitLabel, line.Quantity, line.UnitPrice, line.LineTotal,
		)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(lines); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", lines[i].OrderID.String()).
				Int64("product_id", lines[i].ProductID).
				Msg("failed to create order line")
			return fmt.Errorf("failed to create order line: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(lines)).
		Msg("order lines created")

	return nil
}

const orderColumns = `
	id, user_id, customer_name, customer_email, guest_name, guest_email,
	status, payment_method, subtotal_amount, delivery_fee, total_amount,
	delivery_address, note, contact_phone, created_at
`

// GetByIDWithLines retrieves an order and its lines.
func (r *orderRepository) GetByIDWithLines(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := r.scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	lines, err := r.queryLines(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	return order, nil
}

// GetByIDForUpdate retrieves an order and its lines inside the transaction,
// locking the order row so concurrent transitions serialize.
func (r *orderRepository) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	order, err := r.scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order for update")
		return nil, fmt.Errorf("failed to query order for update: %w", err)
	}

	lines, err := r.queryLines(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	return order, nil
}

// UpdateStatus sets the order's status within the provided transaction.
func (r *orderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus) error {
	tag, err := tx.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update order status: order %s not found", id)
	}

	r.logger.Debug().
		Str("order_id", id.String()).
		Str("status", string(status)).
		Msg("order status updated")

	return nil
}

// ListByUser retrieves a registered customer's orders, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to query orders by user")
		return nil, fmt.Errorf("failed to query orders by user: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order row")
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order rows")
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	for i := range orders {
		lines, err := r.queryLines(ctx, r.pool, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Lines = lines
	}

	return orders, nil
}

// AdminList retrieves condensed order rows, optionally filtered by status.
func (r *orderRepository) AdminList(ctx context.Context, status *model.OrderStatus, limit, offset int) ([]model.AdminOrderListItem, error) {
	query := `
		SELECT o.id, o.status, o.total_amount,
		       COALESCE(o.customer_name, o.guest_name, ''), COALESCE(o.delivery_address, ''),
		       COALESCE(o.note, ''), COALESCE(o.contact_phone, ''),
		       (SELECT COUNT(*) FROM order_lines l WHERE l.order_id = o.id),
		       o.created_at
		FROM orders o
		WHERE $1::text IS NULL OR o.status = $1
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3
	`

	var statusArg *string
	if status != nil {
		s := string(*status)
		statusArg = &s
	}

	rows, err := r.pool.Query(ctx, query, statusArg, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query admin order list")
		return nil, fmt.Errorf("failed to query admin order list: %w", err)
	}
	defer rows.Close()

	var items []model.AdminOrderListItem
	for rows.Next() {
		var item model.AdminOrderListItem
		err := rows.Scan(
			&item.ID, &item.Status, &item.TotalAmount,
			&item.CustomerName, &item.Address, &item.Note, &item.ContactPhone,
			&item.ItemsCount, &item.CreatedAt,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan admin order row")
			return nil, fmt.Errorf("failed to scan admin order row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating admin order rows")
		return nil, fmt.Errorf("error iterating admin order rows: %w", err)
	}

	return items, nil
}

// CountByStatus returns per-status order counts.
func (r *orderRepository) CountByStatus(ctx context.Context) (*model.AdminOrderStats, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to count orders by status")
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	defer rows.Close()

	var stats model.AdminOrderStats
	for rows.Next() {
		var status model.OrderStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		switch status {
		case model.StatusPending:
			stats.Pending = count
		case model.StatusDelivered:
			stats.Delivered = count
		case model.StatusCancelled:
			stats.Cancelled = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}

	stats.Total = stats.Pending + stats.Delivered + stats.Cancelled
	return &stats, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// queryLines loads the lines belonging to an order, in insertion order.
func (r *orderRepository) queryLines(ctx context.Context, q querier, orderID uuid.UUID) ([]model.OrderLine, error) {
	query := `
		SELECT id, order_id, product_id, product_name, unit_label, quantity, unit_price, line_total
		FROM order_lines
		WHERE order_id = $1
		ORDER BY product_name
	`

	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query order lines")
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	var lines []model.OrderLine
	for rows.Next() {
		var line model.OrderLine
		err := rows.Scan(
			&line.ID, &line.OrderID, &line.ProductID, &line.ProductName,
			&line.UnitLabel, &line.Quantity, &line.UnitPrice, &line.LineTotal,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order line row")
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order line rows")
		return nil, fmt.Errorf("error iterating order lines: %w", err)
	}

	return lines, nil
}

// scanOrder scans an order row and reconstructs the orderer variant from the
// nullable user/guest columns.
func (r *orderRepository) scanOrder(row pgx.Row) (*model.Order, error) {
	var order model.Order
	var userID *int64
	var customerName, customerEmail, guestName, guestEmail, deliveryAddress, note, contactPhone *string

	err := row.Scan(
		&order.ID, &userID, &customerName, &customerEmail, &guestName, &guestEmail,
		&order.Status, &order.PaymentMethod, &order.SubtotalAmount, &order.DeliveryFee, &order.TotalAmount,
		&deliveryAddress, &note, &contactPhone, &order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if deliveryAddress != nil {
		order.DeliveryAddress = *deliveryAddress
	}
	if note != nil {
		order.Note = *note
	}
	if contactPhone != nil {
		order.ContactPhone = *contactPhone
	}

	if userID != nil {
		registered := model.RegisteredOrderer{UserID: *userID}
		if customerEmail != nil {
			registered.Email = *customerEmail
		}
		if customerName != nil {
			registered.FullName = *customerName
		}
		order.Orderer = registered
	} else {
		guest := model.GuestOrderer{Phone: order.ContactPhone}
		if guestName != nil {
			guest.Name = *guestName
		}
		if guestEmail != nil {
			guest.Email = *guestEmail
		}
		order.Orderer = guest
	}

	return &order, nil
}
