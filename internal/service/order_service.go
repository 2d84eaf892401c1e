package service

import (
	"context"
	"fmt"
	"time"

	"marketim/internal/identity"
	"marketim/internal/model"
	"marketim/internal/pricing"
	"marketim/internal/repository"
	"marketim/internal/settings"
	"marketim/internal/validation"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// orderService implements OrderService. Every mutating operation runs inside
// a single database transaction: a failure at any step rolls back all stock
// decrements, ledger rows and order rows attempted in that call.
type orderService struct {
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	movementRepo repository.StockMovementRepository
	settings     settings.Provider
	validator    *validation.OrderValidator
	logger       zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	movementRepo repository.StockMovementRepository,
	provider settings.Provider,
	validator *validation.OrderValidator,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		movementRepo: movementRepo,
		settings:     provider,
		validator:    validator,
		logger:       logger.With().Str("service", "order").Logger(),
	}
}

// mergedLine is one (product, quantity) pair after merging duplicate product
// ids from the request.
type mergedLine struct {
	productID int64
	quantity  int
}

// mergeItems collapses duplicate product ids, preserving first-seen order.
func mergeItems(items []model.OrderItemRequest) []mergedLine {
	index := make(map[int64]int, len(items))
	var merged []mergedLine
	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			merged[i].quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, mergedLine{productID: item.ProductID, quantity: item.Quantity})
	}
	return merged
}

// Create validates the request, reserves stock line by line with atomic
// conditional decrements, prices the order and persists it, all within one
// transaction.
func (s *orderService) Create(ctx context.Context, req *model.OrderCreateRequest, principal *identity.Principal) (*model.OrderResponse, error) {
	if err := s.validator.ValidateCreate(ctx, req, principal); err != nil {
		return nil, err
	}

	merged := mergeItems(req.Items)
	productIDs := make([]int64, len(merged))
	for i, line := range merged {
		productIDs[i] = line.productID
	}

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	// Roll back on any error so partial decrements never commit.
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	// Pre-fetch the whole id set so a missing product fails before any
	// stock is touched.
	products, err := s.productRepo.GetByIDs(ctx, tx, productIDs)
	if err != nil {
		return nil, err
	}
	if len(products) != len(productIDs) {
		found := make(map[int64]bool, len(products))
		for _, p := range products {
			found[p.ID] = true
		}
		for _, id := range productIDs {
			if !found[id] {
				err = model.NewProductNotFound(id)
				return nil, err
			}
		}
	}

	order := &model.Order{
		ID:              uuid.New(),
		Orderer:         ordererFor(principal, req),
		Status:          model.StatusPending,
		PaymentMethod:   model.PaymentMethod(req.PaymentMethod),
		DeliveryAddress: req.DeliveryAddress,
		Note:            req.Note,
		ContactPhone:    req.ContactPhone,
		CreatedAt:       time.Now(),
	}
	actor := actorFor(principal, req)

	for _, pair := range merged {
		var line model.OrderLine
		line, err = s.reserveLine(ctx, tx, order, pair, actor)
		if err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, line)
	}

	subtotal := pricing.Subtotal(order.Lines)

	minOrderAmount, err := s.settings.GetDecimal(ctx, settings.KeyMinOrderAmount, decimal.Zero)
	if err != nil {
		return nil, err
	}
	if err = pricing.CheckMinimum(subtotal, minOrderAmount); err != nil {
		return nil, err
	}

	fixedFee, err := s.settings.GetDecimal(ctx, settings.KeyDeliveryFeeFixed, decimal.Zero)
	if err != nil {
		return nil, err
	}
	freeThreshold, err := s.settings.GetDecimal(ctx, settings.KeyDeliveryFreeThreshold, decimal.Zero)
	if err != nil {
		return nil, err
	}

	quote := pricing.Calculate(order.Lines, freeThreshold, fixedFee)
	order.SubtotalAmount = quote.Subtotal
	order.DeliveryFee = quote.DeliveryFee
	order.TotalAmount = quote.Total

	if err = s.orderRepo.Create(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	if err = s.orderRepo.CreateLines(ctx, tx, order.Lines); err != nil {
		return nil, fmt.Errorf("failed to create order lines: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Int("line_count", len(order.Lines)).
		Str("total", order.TotalAmount.String()).
		Msg("order created")

	return order.ToResponse(), nil
}

// reserveLine re-fetches the authoritative product, verifies it and its
// category are active, performs the conditional decrement and records the
// ORDER_CREATE movement. Before/after stock come from the decrement's own
// returned value, never from a separate read.
func (s *orderService) reserveLine(ctx context.Context, tx pgx.Tx, order *model.Order, pair mergedLine, actor string) (model.OrderLine, error) {
	product, err := s.productRepo.GetByIDWithCategory(ctx, tx, pair.productID)
	if err != nil {
		return model.OrderLine{}, err
	}
	if product == nil {
		return model.OrderLine{}, model.NewProductNotFound(pair.productID)
	}
	if !product.Active {
		return model.OrderLine{}, model.NewProductInactive(product.ID)
	}
	if product.Category != nil && !product.Category.Active {
		return model.OrderLine{}, model.NewCategoryInactive(product.Category.ID)
	}

	afterStock, ok, err := s.productRepo.DecreaseStockIfAvailable(ctx, tx, product.ID, pair.quantity)
	if err != nil {
		return model.OrderLine{}, err
	}
	if !ok {
		return model.OrderLine{}, model.NewInsufficientStock(product.ID)
	}
	beforeStock := afterStock + pair.quantity

	movement := &model.StockMovement{
		ProductID:     product.ID,
		Type:          model.MovementOrderCreate,
		Delta:         -pair.quantity,
		BeforeStock:   beforeStock,
		AfterStock:    afterStock,
		ReferenceType: "ORDER",
		ReferenceID:   order.ID.String(),
		Actor:         actor,
		CreatedAt:     time.Now(),
	}
	if err := s.movementRepo.Append(ctx, tx, movement); err != nil {
		return model.OrderLine{}, err
	}

	unitPrice := product.Price
	return model.OrderLine{
		ID:          uuid.New(),
		OrderID:     order.ID,
		ProductID:   product.ID,
		ProductName: product.Name,
		UnitLabel:   product.UnitLabel,
		Quantity:    pair.quantity,
		UnitPrice:   unitPrice,
		LineTotal:   unitPrice.Mul(decimal.NewFromInt(int64(pair.quantity))),
	}, nil
}

// CancelMyOrder cancels the authenticated customer's own pending order.
func (s *orderService) CancelMyOrder(ctx context.Context, orderID uuid.UUID, principal *identity.Principal) (*model.OrderResponse, error) {
	if principal == nil {
		return nil, model.ErrUnauthorised
	}
	return s.transition(ctx, orderID, model.StatusCancelled, &ownershipCheck{userID: principal.UserID}, principal.Email, "")
}

// AdminSetStatus moves an order to any legal target status.
func (s *orderService) AdminSetStatus(ctx context.Context, orderID uuid.UUID, target model.OrderStatus) (*model.OrderResponse, error) {
	if !target.Valid() {
		return nil, model.NewInvalidOrderRequest(fmt.Sprintf("Unknown order status: %s", target))
	}
	return s.transition(ctx, orderID, target, nil, "ADMIN", "Admin cancelled order")
}

// ownershipCheck restricts a transition to the order's owning user.
type ownershipCheck struct {
	userID int64
}

// transition loads the order under lock, consults the state machine, runs
// the compensating stock reversal when entering CANCELLED and persists the
// new status, all in one transaction. A same-status transition is a no-op
// with no side effects.
func (s *orderService) transition(ctx context.Context, orderID uuid.UUID, target model.OrderStatus, owner *ownershipCheck, actor, cancelNote string) (*model.OrderResponse, error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	order, err := s.orderRepo.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		err = model.NewOrderNotFound(orderID.String())
		return nil, err
	}

	if owner != nil {
		registered, ok := order.Orderer.(model.RegisteredOrderer)
		if !ok || registered.UserID != owner.userID {
			err = model.NewDomainError(model.ErrCodeForbidden, "You can only cancel your own orders")
			return nil, err
		}
	}

	if !order.Status.CanTransitionTo(target) {
		err = model.NewInvalidTransition(order.Status, target)
		return nil, err
	}

	if order.Status == target {
		// Idempotent no-op: no movement, status unchanged.
		if err = tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to update order: %w", err)
		}
		return order.ToResponse(), nil
	}

	if target == model.StatusCancelled {
		if err = s.reverseStock(ctx, tx, order, actor, cancelNote); err != nil {
			return nil, err
		}
	}

	if err = s.orderRepo.UpdateStatus(ctx, tx, order.ID, target); err != nil {
		return nil, err
	}
	order.Status = target

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("status", string(target)).
		Str("actor", actor).
		Msg("order status updated")

	return order.ToResponse(), nil
}

// reverseStock returns every line's quantity to the catalogue and records
// one ORDER_CANCEL movement per line. The increment is unconditional; there
// is no stock ceiling.
func (s *orderService) reverseStock(ctx context.Context, tx pgx.Tx, order *model.Order, actor, note string) error {
	for _, line := range order.Lines {
		afterStock, err := s.productRepo.IncreaseStock(ctx, tx, line.ProductID, line.Quantity)
		if err != nil {
			return err
		}
		beforeStock := afterStock - line.Quantity

		movement := &model.StockMovement{
			ProductID:     line.ProductID,
			Type:          model.MovementOrderCancel,
			Delta:         line.Quantity,
			BeforeStock:   beforeStock,
			AfterStock:    afterStock,
			ReferenceType: "ORDER",
			ReferenceID:   order.ID.String(),
			Note:          note,
			Actor:         actor,
			CreatedAt:     time.Now(),
		}
		if err := s.movementRepo.Append(ctx, tx, movement); err != nil {
			return err
		}
	}
	return nil
}

// GetByIDAdmin retrieves any order by id.
func (s *orderService) GetByIDAdmin(ctx context.Context, orderID uuid.UUID) (*model.OrderResponse, error) {
	order, err := s.orderRepo.GetByIDWithLines(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.NewOrderNotFound(orderID.String())
	}
	return order.ToResponse(), nil
}

// ListMyOrders retrieves the authenticated customer's orders.
func (s *orderService) ListMyOrders(ctx context.Context, principal *identity.Principal) ([]model.OrderResponse, error) {
	if principal == nil {
		return nil, model.ErrUnauthorised
	}

	orders, err := s.orderRepo.ListByUser(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	responses := make([]model.OrderResponse, len(orders))
	for i := range orders {
		responses[i] = *orders[i].ToResponse()
	}
	return responses, nil
}

// AdminList retrieves condensed order rows with optional status filter.
func (s *orderService) AdminList(ctx context.Context, status *model.OrderStatus, limit, offset int) ([]model.AdminOrderListItem, error) {
	return s.orderRepo.AdminList(ctx, status, limit, offset)
}

// AdminStats returns per-status order counts.
func (s *orderService) AdminStats(ctx context.Context) (*model.AdminOrderStats, error) {
	return s.orderRepo.CountByStatus(ctx)
}

// ordererFor builds the orderer variant for the request.
func ordererFor(principal *identity.Principal, req *model.OrderCreateRequest) model.Orderer {
	if principal != nil {
		return model.RegisteredOrderer{
			UserID:   principal.UserID,
			Email:    principal.Email,
			FullName: principal.FullName,
		}
	}
	return model.GuestOrderer{
		Name:  req.GuestName,
		Email: req.GuestEmail,
		Phone: req.ContactPhone,
	}
}

// actorFor names the actor recorded on ledger rows for an order creation.
func actorFor(principal *identity.Principal, req *model.OrderCreateRequest) string {
	if principal != nil {
		return principal.Email
	}
	return req.GuestEmail
}
