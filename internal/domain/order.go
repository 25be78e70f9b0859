package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// statusTransitions is the explicit lifecycle policy: statuses advance
// forward only, with cancellation reachable from pending and processing.
// Delivered and cancelled are terminal.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

func (s OrderStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type ShippingAddress struct {
	Name    string `json:"name"`
	Zip     string `json:"zip"`
	Street  string `json:"street"`
	Country string `json:"country"`
	City    string `json:"city"`
}

func (a ShippingAddress) Complete() bool {
	return a.Name != "" && a.Zip != "" && a.Street != "" && a.Country != "" && a.City != ""
}

// Order is immutable after creation except for its status. The item list
// is a snapshot of the cart at purchase time.
type Order struct {
	ID              int             `json:"id"`
	OrderNumber     string          `json:"order_number"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []CartItem      `json:"items"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	PaymentMethod   string          `json:"payment_method"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
}
