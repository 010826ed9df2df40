package models

import "time"

type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "COD"
	PaymentMethodMpesa  PaymentMethod = "MPESA"
	PaymentMethodStripe PaymentMethod = "STRIPE"
)

// ValidPaymentMethod reports whether m is one of the accepted methods.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodMpesa, PaymentMethodStripe:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// CanTransitionPayment encodes the payment state machine:
// PENDING→PAID, PENDING→FAILED, PAID→REFUNDED. Everything else is
// forbidden; callers treat a forbidden transition from a terminal state
// as a no-op so callback handling stays idempotent.
func CanTransitionPayment(from, to PaymentStatus) bool {
	switch from {
	case PaymentPending:
		return to == PaymentPaid || to == PaymentFailed
	case PaymentPaid:
		return to == PaymentRefunded
	}
	return false
}

type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "PENDING"
	DeliveryDispatched DeliveryStatus = "DISPATCHED"
	DeliveryDelivered  DeliveryStatus = "DELIVERED"
	DeliveryCancelled  DeliveryStatus = "CANCELLED"
)

func ValidDeliveryStatus(s DeliveryStatus) bool {
	switch s {
	case DeliveryPending, DeliveryDispatched, DeliveryDelivered, DeliveryCancelled:
		return true
	}
	return false
}

// OrderItem is an immutable snapshot taken at checkout from the live
// product record.
type OrderItem struct {
	ID        int64   `json:"-" db:"id"`
	OrderID   int64   `json:"-" db:"order_id"`
	ProductID int64   `json:"product" db:"product_id"`
	Name      string  `json:"name" db:"name"`
	Image     string  `json:"image" db:"image"`
	Price     float64 `json:"price" db:"price"`
	Quantity  int     `json:"quantity" db:"quantity"`
}

type Order struct {
	ID                int64          `json:"_id" db:"id"`
	OrderNumber       string         `json:"orderNumber" db:"order_number"`
	UserID            int64          `json:"user" db:"user_id"`
	Phone             string         `json:"phone" db:"phone"`
	Items             []OrderItem    `json:"items"`
	Subtotal          float64        `json:"subtotal" db:"subtotal"`
	DeliveryFee       float64        `json:"deliveryFee" db:"delivery_fee"`
	TotalAmount       float64        `json:"totalAmount" db:"total_amount"`
	Currency          string         `json:"currency" db:"currency"`
	PaymentMethod     PaymentMethod  `json:"paymentMethod" db:"payment_method"`
	PaymentStatus     PaymentStatus  `json:"paymentStatus" db:"payment_status"`
	PaymentReference  string         `json:"paymentReference,omitempty" db:"payment_reference"`
	PaidAt            *time.Time     `json:"paidAt,omitempty" db:"paid_at"`
	DeliveryAddress   string         `json:"deliveryAddress" db:"delivery_address"`
	DeliveryCity      string         `json:"deliveryCity" db:"delivery_city"`
	DeliveryStatus    DeliveryStatus `json:"deliveryStatus" db:"delivery_status"`
	SMSUpdatesEnabled bool           `json:"smsUpdatesEnabled" db:"sms_updates_enabled"`
	Notes             string         `json:"notes,omitempty" db:"notes"`
	CreatedAt         time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time      `json:"updatedAt" db:"updated_at"`
}
