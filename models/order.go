package models

import "time"

// PaymentStatus is the payment state of an order. Besides PENDING and
// SUCCESS, online flows may persist an intermediate caller-supplied value.
type PaymentStatus string

const (
	PaymentPending         PaymentStatus = "PENDING"
	PaymentSuccess         PaymentStatus = "SUCCESS"
	PaymentAwaitingPayment PaymentStatus = "AWAITING_PAYMENT"
)

// OrderItem captures the unit price at order time.
type OrderItem struct {
	ProductID string  `json:"productId" bson:"productId"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	Price     float64 `json:"price" bson:"price"`
}

// Order is immutable after creation except for the payment fields.
type Order struct {
	ID                string        `json:"id" bson:"_id"`
	PaymentStatus     PaymentStatus `json:"payment_status" bson:"payment_status"`
	PaymentMode       string        `json:"payment_mode" bson:"payment_mode"`
	UserID            string        `json:"userId" bson:"userId"`
	UserName          string        `json:"userName" bson:"userName"`
	UserEmail         string        `json:"userEmail" bson:"userEmail"`
	UserPhoneNumber   string        `json:"userPhoneNumber" bson:"userPhoneNumber"`
	ShippingAddress   string        `json:"shippingAddress" bson:"shippingAddress"`
	Address           string        `json:"address" bson:"address"`
	TotalAmount       float64       `json:"totalAmount" bson:"totalAmount"`
	OrderItems        []OrderItem   `json:"orderItems" bson:"orderItems"`
	Product           string        `json:"product" bson:"product"`
	Quantity          int           `json:"quantity" bson:"quantity"`
	RazorpayOrderID   string        `json:"razorpay_order_id,omitempty" bson:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string        `json:"razorpay_payment_id,omitempty" bson:"razorpay_payment_id,omitempty"`
	RazorpaySignature string        `json:"razorpay_signature,omitempty" bson:"razorpay_signature,omitempty"`
	CreatedAt         time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// Items returns the line items, falling back to the legacy single-product
// fields for orders written before line items existed.
func (o *Order) Items() []OrderItem {
	if len(o.OrderItems) > 0 {
		return o.OrderItems
	}
	if o.Product == "" {
		return nil
	}
	qty := o.Quantity
	if qty < 1 {
		qty = 1
	}
	return []OrderItem{{ProductID: o.Product, Quantity: qty, Price: o.TotalAmount / float64(qty)}}
}

// GatewayOrder is the payment provider's view of an order.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
	Status   string `json:"status,omitempty"`
}

// IdempotencyRecord stores the first response produced for an Idempotency-Key.
type IdempotencyRecord struct {
	Key         string         `bson:"key"`
	Method      string         `bson:"method"`
	Path        string         `bson:"path"`
	UserID      string         `bson:"user_id"`
	RequestHash string         `bson:"request_hash"`
	Response    map[string]any `bson:"response,omitempty"`
	CreatedAt   time.Time      `bson:"created_at"`
	ExpiresAt   time.Time      `bson:"expires_at"`
}
