// Package checkout orchestrates placing an order: it validates the cart
// and the order inputs, snapshots the cart into the order ledger, clears
// the cart, and announces the new order. Any validation failure
// short-circuits before the ledger is touched; no partial order exists.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bluehouse-sports/storefront/internal/domain"
	"github.com/bluehouse-sports/storefront/internal/notify"
)

var (
	ErrEmptyCart            = errors.New("checkout: cart is empty")
	ErrUnknownPaymentMethod = errors.New("checkout: unknown payment method")
	ErrMissingCard          = errors.New("checkout: payment method requires a card")
	ErrIncompleteAddress    = errors.New("checkout: shipping address is incomplete")
)

const (
	PaymentCard   = "card"
	PaymentPix    = "pix"
	PaymentBoleto = "boleto"
)

// Cart is the slice of the cart store checkout needs.
type Cart interface {
	Items() []domain.CartItem
	Total() decimal.Decimal
	Clear(ctx context.Context)
}

// OrderCreator is the slice of the order ledger checkout needs.
type OrderCreator interface {
	Create(ctx context.Context, items []domain.CartItem, total decimal.Decimal, paymentMethod string, address domain.ShippingAddress) (domain.Order, error)
}

// Publisher announces created orders; publishing is fire-and-forget.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Flow struct {
	cart      Cart
	orders    OrderCreator
	publisher Publisher
	notifier  notify.Notifier
	logger    *slog.Logger
}

// NewFlow builds the checkout orchestration. publisher may be nil.
func NewFlow(cart Cart, orders OrderCreator, publisher Publisher, notifier notify.Notifier, logger *slog.Logger) *Flow {
	return &Flow{
		cart:      cart,
		orders:    orders,
		publisher: publisher,
		notifier:  notifier,
		logger:    logger,
	}
}

type Request struct {
	PaymentMethod   string                 `json:"payment_method"`
	CardToken       string                 `json:"card_token,omitempty"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
}

func (r Request) validate() error {
	switch r.PaymentMethod {
	case PaymentCard:
		if r.CardToken == "" {
			return ErrMissingCard
		}
	case PaymentPix, PaymentBoleto:
	default:
		return ErrUnknownPaymentMethod
	}
	if !r.ShippingAddress.Complete() {
		return ErrIncompleteAddress
	}
	return nil
}

// PlaceOrder runs the whole checkout sequence. On success the cart is
// empty and the returned order is already persisted.
func (f *Flow) PlaceOrder(ctx context.Context, req Request) (domain.Order, error) {
	items := f.cart.Items()
	if len(items) == 0 {
		f.notifier.Notify(notify.KindError, "Your cart is empty. Add products before checking out.")
		return domain.Order{}, ErrEmptyCart
	}

	if err := req.validate(); err != nil {
		f.notifier.Notify(notify.KindError, "Please review your payment and shipping details.")
		return domain.Order{}, err
	}

	total := f.cart.Total()

	order, err := f.orders.Create(ctx, items, total, req.PaymentMethod, req.ShippingAddress)
	if err != nil {
		f.notifier.Notify(notify.KindError, "We could not place your order. Please try again.")
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	f.cart.Clear(ctx)
	f.notifier.Notify(notify.KindSuccess, fmt.Sprintf("Order %s placed.", order.OrderNumber))

	if f.publisher != nil {
		event := domain.OrderCreatedEvent{
			EventID:     uuid.NewString(),
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Items:       order.Items,
			Total:       order.Total,
			Timestamp:   time.Now().UTC(),
		}
		if err := f.publisher.Publish(ctx, strconv.Itoa(order.ID), event); err != nil {
			f.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
		}
	}

	f.logger.Info("checkout completed", "order_id", order.ID, "order_number", order.OrderNumber)
	return order, nil
}
