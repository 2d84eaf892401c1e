package service

import (
	"context"
	"fmt"
	"time"

	"marketim/internal/model"
	"marketim/internal/repository"

	"github.com/rs/zerolog"
)

// stockService implements StockService.
type stockService struct {
	tx           repository.TxBeginner
	productRepo  repository.ProductRepository
	movementRepo repository.StockMovementRepository
	logger       zerolog.Logger
}

// NewStockService creates a new stock service.
func NewStockService(
	tx repository.TxBeginner,
	productRepo repository.ProductRepository,
	movementRepo repository.StockMovementRepository,
	logger zerolog.Logger,
) StockService {
	return &stockService{
		tx:           tx,
		productRepo:  productRepo,
		movementRepo: movementRepo,
		logger:       logger.With().Str("service", "stock").Logger(),
	}
}

// Adjust applies a signed stock delta as one conditional update and records
// an ADMIN_ADJUST movement in the same transaction. Adjustments that would
// drive stock negative are rejected.
func (s *stockService) Adjust(ctx context.Context, req *model.StockAdjustRequest, actor string) (*model.StockMovement, error) {
	if req == nil || req.Delta == 0 {
		return nil, model.NewInvalidOrderRequest("Stock adjustment delta must be non-zero")
	}

	tx, err := s.tx.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		err = model.NewProductNotFound(req.ProductID)
		return nil, err
	}

	afterStock, ok, err := s.productRepo.AdjustStock(ctx, tx, req.ProductID, req.Delta)
	if err != nil {
		return nil, err
	}
	if !ok {
		err = model.NewInsufficientStock(req.ProductID)
		return nil, err
	}
	beforeStock := afterStock - req.Delta

	movement := &model.StockMovement{
		ProductID:     req.ProductID,
		Type:          model.MovementAdminAdjust,
		Delta:         req.Delta,
		BeforeStock:   beforeStock,
		AfterStock:    afterStock,
		ReferenceType: "ADJUSTMENT",
		Note:          req.Note,
		Actor:         actor,
		CreatedAt:     time.Now(),
	}
	if err = s.movementRepo.Append(ctx, tx, movement); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Int64("product_id", req.ProductID).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}

	s.logger.Info().
		Int64("product_id", req.ProductID).
		Int("delta", req.Delta).
		Int("stock", afterStock).
		Str("actor", actor).
		Msg("stock adjusted")

	return movement, nil
}

// ListByProduct retrieves a product's movement history, newest first.
func (s *stockService) ListByProduct(ctx context.Context, productID int64, limit, offset int) ([]model.StockMovement, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	movements, err := s.movementRepo.ListByProduct(ctx, productID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Int64("product_id", productID).Msg("failed to list stock movements")
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}

	if movements == nil {
		movements = []model.StockMovement{}
	}
	return movements, nil
}
