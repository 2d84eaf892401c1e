package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is the payment option selected at checkout. The configured
// allow-list (PAYMENT_ON_DELIVERY_METHODS setting) decides which values are
// accepted for new orders.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "CASH"
	PaymentCard PaymentMethod = "CARD"
)

// Orderer identifies who placed an order: a registered user or a guest with
// contact details. The two cases are mutually exclusive by construction.
type Orderer interface {
	ordererName() string
}

// RegisteredOrderer is an authenticated customer.
type RegisteredOrderer struct {
	UserID   int64
	Email    string
	FullName string
}

func (r RegisteredOrderer) ordererName() string { return r.FullName }

// GuestOrderer is an unauthenticated customer. All three contact fields are
// required at validation time.
type GuestOrderer struct {
	Name  string
	Email string
	Phone string
}

func (g GuestOrderer) ordererName() string { return g.Name }

// CustomerName returns the display name for an orderer.
func CustomerName(o Orderer) string {
	if o == nil {
		return ""
	}
	return o.ordererName()
}

// Order represents a customer order. Amounts are persisted with two fraction
// digits; TotalAmount is always SubtotalAmount + DeliveryFee.
type Order struct {
	ID              uuid.UUID       `db:"id"`
	Orderer         Orderer         `db:"-"`
	Status          OrderStatus     `db:"status"`
	PaymentMethod   PaymentMethod   `db:"payment_method"`
	SubtotalAmount  decimal.Decimal `db:"subtotal_amount"`
	DeliveryFee     decimal.Decimal `db:"delivery_fee"`
	TotalAmount     decimal.Decimal `db:"total_amount"`
	DeliveryAddress string          `db:"delivery_address"`
	Note            string          `db:"note"`
	ContactPhone    string          `db:"contact_phone"`
	CreatedAt       time.Time       `db:"created_at"`
	Lines           []OrderLine     `db:"-"`
}

// OrderLine is one (product, quantity) pairing within an order after
// duplicate product ids are merged. UnitPrice and LineTotal snapshot the
// catalogue price at order time and never change afterwards.
type OrderLine struct {
	ID          uuid.UUID       `db:"id"`
	OrderID     uuid.UUID       `db:"order_id"`
	ProductID   int64           `db:"product_id"`
	ProductName string          `db:"product_name"`
	UnitLabel   string          `db:"unit_label"`
	Quantity    int             `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	LineTotal   decimal.Decimal `db:"line_total"`
}

// OrderCreateRequest is the request payload for creating an order.
type OrderCreateRequest struct {
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentMethod   string             `json:"paymentMethod"`
	DeliveryAddress string             `json:"deliveryAddress,omitempty"`
	Note            string             `json:"note,omitempty"`
	ContactPhone    string             `json:"contactPhone,omitempty"`
	GuestName       string             `json:"guestName,omitempty"`
	GuestEmail      string             `json:"guestEmail,omitempty"`
}

// OrderItemRequest is a single item in an order request. Duplicate product
// ids are merged before stock is reserved.
type OrderItemRequest struct {
	ProductID int64 `json:"productId" validate:"required,min=1"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
}

// OrderStatusUpdateRequest is the admin request to move an order to a target
// status.
type OrderStatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderResponse is the materialized order view returned to clients.
type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	Status          string              `json:"status"`
	PaymentMethod   string              `json:"paymentMethod"`
	SubtotalAmount  decimal.Decimal     `json:"subtotalAmount"`
	DeliveryFee     decimal.Decimal     `json:"deliveryFee"`
	TotalAmount     decimal.Decimal     `json:"totalAmount"`
	DeliveryAddress string              `json:"deliveryAddress,omitempty"`
	Note            string              `json:"note,omitempty"`
	ContactPhone    string              `json:"contactPhone,omitempty"`
	CustomerName    string              `json:"customerName,omitempty"`
	GuestEmail      string              `json:"guestEmail,omitempty"`
	Items           []OrderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"createdAt"`
}

// OrderItemResponse is one order line in an order response.
type OrderItemResponse struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	UnitLabel   string          `json:"unitLabel,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// AdminOrderListItem is the condensed row for the admin order list.
type AdminOrderListItem struct {
	ID           uuid.UUID       `json:"id"`
	Status       string          `json:"status"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	CustomerName string          `json:"customerName,omitempty"`
	Address      string          `json:"address,omitempty"`
	Note         string          `json:"note,omitempty"`
	ContactPhone string          `json:"contactPhone,omitempty"`
	ItemsCount   int             `json:"itemsCount"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// AdminOrderStats is the per-status order count summary.
type AdminOrderStats struct {
	Pending   int64 `json:"pending"`
	Delivered int64 `json:"delivered"`
	Cancelled int64 `json:"cancelled"`
	Total     int64 `json:"total"`
}

// ToResponse converts an order and its lines into the client view.
func (o *Order) ToResponse() *OrderResponse {
	items := make([]OrderItemResponse, len(o.Lines))
	for i, line := range o.Lines {
		items[i] = OrderItemResponse{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			UnitLabel:   line.UnitLabel,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   line.LineTotal,
		}
	}

	resp := &OrderResponse{
		ID:              o.ID,
		Status:          string(o.Status),
		PaymentMethod:   string(o.PaymentMethod),
		SubtotalAmount:  o.SubtotalAmount,
		DeliveryFee:     o.DeliveryFee,
		TotalAmount:     o.TotalAmount,
		DeliveryAddress: o.DeliveryAddress,
		Note:            o.Note,
		ContactPhone:    o.ContactPhone,
		CustomerName:    CustomerName(o.Orderer),
		Items:           items,
		CreatedAt:       o.CreatedAt,
	}
	if guest, ok := o.Orderer.(GuestOrderer); ok {
		resp.GuestEmail = guest.Email
	}
	return resp
}
