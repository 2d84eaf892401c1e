package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product in the store catalogue.
type Product struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description,omitempty" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Stock       int             `json:"stock" db:"stock"`
	UnitLabel   string          `json:"unitLabel,omitempty" db:"unit_label"`
	ImageURL    string          `json:"imageUrl,omitempty" db:"image_url"`
	Active      bool            `json:"active" db:"active"`
	CategoryID  int64           `json:"categoryId" db:"category_id"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`

	// Category lookup state joined at order time. Only populated by
	// GetByIDWithCategory.
	Category *Category `json:"category,omitempty"`
}

// Category represents a product category.
type Category struct {
	ID     int64  `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Active bool   `json:"active" db:"active"`
}
