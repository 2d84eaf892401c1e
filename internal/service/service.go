package service

import (
	"context"

	"marketim/internal/identity"
	"marketim/internal/model"

	"github.com/google/uuid"
)

// OrderService coordinates the order workflow: validation, stock
// reservation, pricing, persistence and status transitions.
type OrderService interface {
	// Create validates and prices a new order, reserving stock atomically.
	// A nil principal places a guest order.
	Create(ctx context.Context, req *model.OrderCreateRequest, principal *identity.Principal) (*model.OrderResponse, error)

	// CancelMyOrder cancels the authenticated customer's own pending order,
	// returning its stock.
	CancelMyOrder(ctx context.Context, orderID uuid.UUID, principal *identity.Principal) (*model.OrderResponse, error)

	// AdminSetStatus moves an order to any legal target status. Entering
	// CANCELLED returns the order's stock.
	AdminSetStatus(ctx context.Context, orderID uuid.UUID, target model.OrderStatus) (*model.OrderResponse, error)

	// GetByIDAdmin retrieves any order by id.
	GetByIDAdmin(ctx context.Context, orderID uuid.UUID) (*model.OrderResponse, error)

	// ListMyOrders retrieves the authenticated customer's orders.
	ListMyOrders(ctx context.Context, principal *identity.Principal) ([]model.OrderResponse, error)

	// AdminList retrieves condensed order rows with optional status filter.
	AdminList(ctx context.Context, status *model.OrderStatus, limit, offset int) ([]model.AdminOrderListItem, error)

	// AdminStats returns per-status order counts.
	AdminStats(ctx context.Context) (*model.AdminOrderStats, error)
}

// ProductService defines catalogue reads for the storefront.
type ProductService interface {
	// GetAll retrieves active products with pagination.
	GetAll(ctx context.Context, limit, offset int) ([]model.Product, error)

	// GetByID retrieves a single product by ID.
	GetByID(ctx context.Context, id int64) (*model.Product, error)
}

// StockService handles administrative stock corrections and the movement
// audit trail.
type StockService interface {
	// Adjust applies a signed stock delta and records an ADMIN_ADJUST
	// movement, all in one transaction.
	Adjust(ctx context.Context, req *model.StockAdjustRequest, actor string) (*model.StockMovement, error)

	// ListByProduct retrieves a product's movement history, newest first.
	ListByProduct(ctx context.Context, productID int64, limit, offset int) ([]model.StockMovement, error)
}
