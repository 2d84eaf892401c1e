package model

import "fmt"

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON           = "INVALID_JSON"
	ErrCodeInvalidOrderRequest   = "INVALID_ORDER_REQUEST"
	ErrCodeStoreClosed           = "STORE_CLOSED"
	ErrCodePaymentMethodRejected = "PAYMENT_METHOD_REJECTED"
	ErrCodeProductNotFound       = "PRODUCT_NOT_FOUND"
	ErrCodeProductInactive       = "PRODUCT_INACTIVE"
	ErrCodeCategoryInactive      = "CATEGORY_INACTIVE"
	ErrCodeInsufficientStock     = "INSUFFICIENT_STOCK"
	ErrCodeBelowMinimumOrder     = "BELOW_MINIMUM_ORDER"
	ErrCodeInvalidTransition     = "INVALID_TRANSITION"
	ErrCodeOrderNotFound         = "ORDER_NOT_FOUND"
	ErrCodeUnauthorised          = "UNAUTHORIZED"
	ErrCodeForbidden             = "FORBIDDEN"
	ErrCodeInternalError         = "INTERNAL_ERROR"
)

// DomainError is a business-rule violation reported to the client with a
// machine-readable code. Domain errors are never retried by the core.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrOrderItemsEmpty      = NewDomainError(ErrCodeInvalidOrderRequest, "Order items cannot be empty")
	ErrOrderAcceptingClosed = NewDomainError(ErrCodeStoreClosed, "The store is not accepting orders right now")
	ErrPayOnDeliveryClosed  = NewDomainError(ErrCodePaymentMethodRejected, "Pay on delivery is currently disabled")
	ErrPaymentMethodMissing = NewDomainError(ErrCodePaymentMethodRejected, "A payment method must be selected")
	ErrUnauthorised         = NewDomainError(ErrCodeUnauthorised, "Authentication required")
)

// NewInvalidOrderRequest reports a malformed or incomplete creation request.
func NewInvalidOrderRequest(reason string) *DomainError {
	return NewDomainError(ErrCodeInvalidOrderRequest, reason)
}

// NewStoreClosed reports an order placed outside the configured working hours.
func NewStoreClosed(message string) *DomainError {
	return NewDomainError(ErrCodeStoreClosed, message)
}

// NewPaymentMethodRejected reports a payment method outside the allow-list.
func NewPaymentMethodRejected(method string) *DomainError {
	return NewDomainError(ErrCodePaymentMethodRejected, fmt.Sprintf("Payment method is not allowed: %s", method))
}

// NewProductNotFound reports a missing product by id.
func NewProductNotFound(productID int64) *DomainError {
	return NewDomainError(ErrCodeProductNotFound, fmt.Sprintf("Product not found: %d", productID))
}

// NewProductInactive reports an order line against a deactivated product.
func NewProductInactive(productID int64) *DomainError {
	return NewDomainError(ErrCodeProductInactive, fmt.Sprintf("Product is inactive: %d", productID))
}

// NewCategoryInactive reports an order line against a product whose category
// has been deactivated.
func NewCategoryInactive(categoryID int64) *DomainError {
	return NewDomainError(ErrCodeCategoryInactive, fmt.Sprintf("Product category is inactive: %d", categoryID))
}

// NewInsufficientStock reports a lost stock reservation. The conditional
// decrement matched no row: either stock fell below the requested quantity or
// the product was deactivated after it was fetched.
func NewInsufficientStock(productID int64) *DomainError {
	return NewDomainError(ErrCodeInsufficientStock, fmt.Sprintf("Insufficient stock for product: %d", productID))
}

// NewBelowMinimumOrder reports a subtotal under the configured minimum.
func NewBelowMinimumOrder(minimum string) *DomainError {
	return NewDomainError(ErrCodeBelowMinimumOrder, fmt.Sprintf("Minimum order amount is %s", minimum))
}

// NewInvalidTransition reports a disallowed order status transition.
func NewInvalidTransition(from, to OrderStatus) *DomainError {
	return NewDomainError(ErrCodeInvalidTransition, fmt.Sprintf("Invalid status transition: %s -> %s", from, to))
}

// NewOrderNotFound reports a missing order by id.
func NewOrderNotFound(orderID string) *DomainError {
	return NewDomainError(ErrCodeOrderNotFound, fmt.Sprintf("Order not found: %s", orderID))
}
