package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderCreatedEvent struct {
	EventID     string          `json:"event_id"`
	OrderID     int             `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Items       []CartItem      `json:"items"`
	Total       decimal.Decimal `json:"total"`
	Timestamp   time.Time       `json:"timestamp"`
}

type OrderStatusChangedEvent struct {
	EventID   string      `json:"event_id"`
	OrderID   int         `json:"order_id"`
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
}
