package model

import "time"

// StockMovementType classifies the cause of a stock change.
type StockMovementType string

const (
	MovementOrderCreate StockMovementType = "ORDER_CREATE"
	MovementOrderCancel StockMovementType = "ORDER_CANCEL"
	MovementAdminAdjust StockMovementType = "ADMIN_ADJUST"
)

// StockMovement is one append-only ledger row describing a single stock
// change. Rows are never updated or deleted; BeforeStock + Delta ==
// AfterStock always holds.
type StockMovement struct {
	ID            int64             `json:"id" db:"id"`
	ProductID     int64             `json:"productId" db:"product_id"`
	Type          StockMovementType `json:"type" db:"type"`
	Delta         int               `json:"delta" db:"delta"`
	BeforeStock   int               `json:"beforeStock" db:"before_stock"`
	AfterStock    int               `json:"afterStock" db:"after_stock"`
	ReferenceType string            `json:"referenceType,omitempty" db:"reference_type"`
	ReferenceID   string            `json:"referenceId,omitempty" db:"reference_id"`
	Note          string            `json:"note,omitempty" db:"note"`
	Actor         string            `json:"actor,omitempty" db:"actor"`
	CreatedAt     time.Time         `json:"createdAt" db:"created_at"`
}

// StockAdjustRequest is the admin request to correct a product's stock level.
type StockAdjustRequest struct {
	ProductID int64  `json:"productId" validate:"required,min=1"`
	Delta     int    `json:"delta" validate:"required"`
	Note      string `json:"note,omitempty"`
}
