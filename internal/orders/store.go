// Package orders is the append-only ledger of placed orders. Orders are
// persisted with a schema version tag; on load a mismatching tag discards
// the stored history and resets the id counter instead of misreading
// incompatible records.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/bluehouse-sports/storefront/internal/domain"
	"github.com/bluehouse-sports/storefront/internal/kv"
)

const (
	ordersKey  = "bluehouse_orders"
	counterKey = "bluehouse_next_order_id"
	versionKey = "bluehouse_orders_version"

	// SchemaVersion tags the persisted order list. Bump it when the
	// stored shape changes incompatibly; old data is then discarded on
	// load rather than decoded wrong.
	SchemaVersion = "2"
)

var (
	ErrNotFound          = errors.New("orders: order not found")
	ErrInvalidStatus     = errors.New("orders: unknown status")
	ErrInvalidTransition = errors.New("orders: status transition not allowed")
)

type Store struct {
	store  kv.Store
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	orders []domain.Order
	nextID int

	created metric.Int64Counter
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(ctx context.Context, store kv.Store, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		store:  store,
		logger: logger,
		now:    time.Now,
		nextID: 1,
	}
	for _, opt := range opts {
		opt(s)
	}

	meter := otel.Meter("storefront/orders")
	s.created, _ = meter.Int64Counter("orders.created")

	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	version, err := s.store.Get(ctx, versionKey)
	if err != nil && err != kv.ErrNotFound {
		s.logger.Warn("failed to read order schema version, starting empty", "error", err)
		return
	}
	if err == kv.ErrNotFound || string(version) != SchemaVersion {
		if err == nil {
			s.logger.Warn("order schema version mismatch, discarding stored history",
				"stored", string(version), "expected", SchemaVersion)
		}
		s.reset(ctx)
		return
	}

	raw, err := s.store.Get(ctx, ordersKey)
	if err == nil {
		var orders []domain.Order
		if jsonErr := json.Unmarshal(raw, &orders); jsonErr != nil {
			s.logger.Warn("discarding malformed order history", "error", jsonErr)
			s.reset(ctx)
			return
		}
		s.orders = orders
	} else if err != kv.ErrNotFound {
		s.logger.Warn("failed to load orders, starting empty", "error", err)
	}

	if raw, err := s.store.Get(ctx, counterKey); err == nil {
		if next, convErr := strconv.Atoi(string(raw)); convErr == nil && next > 0 {
			s.nextID = next
		}
	}
}

// reset wipes the persisted ledger and starts over. Deliberately
// destructive: stale incompatible history must not crash every load.
func (s *Store) reset(ctx context.Context) {
	s.orders = nil
	s.nextID = 1
	s.persist(ctx)
}

// Create allocates the next sequential id, snapshots the items, and
// persists immediately. The returned order starts pending.
func (s *Store) Create(ctx context.Context, items []domain.CartItem, total decimal.Decimal, paymentMethod string, address domain.ShippingAddress) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	order := domain.Order{
		ID:              s.nextID,
		OrderNumber:     fmt.Sprintf("BH-%d-%d", now.UnixMilli(), s.nextID),
		CreatedAt:       now,
		Items:           domain.CloneItems(items),
		Total:           total,
		Status:          domain.OrderStatusPending,
		PaymentMethod:   paymentMethod,
		ShippingAddress: address,
	}
	s.nextID++
	s.orders = append(s.orders, order)
	s.persist(ctx)

	s.created.Add(ctx, 1)
	s.logger.Info("order created", "order_id", order.ID, "order_number", order.OrderNumber, "total", total)

	return cloneOrder(order), nil
}

// UserOrders returns every order, most recent first.
func (s *Store) UserOrders(_ context.Context) []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := make([]domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		orders = append(orders, cloneOrder(order))
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders
}

func (s *Store) OrderByID(_ context.Context, id int) (domain.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, order := range s.orders {
		if order.ID == id {
			return cloneOrder(order), true
		}
	}
	return domain.Order{}, false
}

// UpdateStatus applies the explicit transition policy: forward-only, with
// cancellation from pending or processing, terminal states immutable.
func (s *Store) UpdateStatus(ctx context.Context, id int, status domain.OrderStatus) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.orders {
		if s.orders[i].ID != id {
			continue
		}
		if !s.orders[i].Status.CanTransitionTo(status) {
			return domain.Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.orders[i].Status, status)
		}
		s.orders[i].Status = status
		s.persist(ctx)
		s.logger.Info("order status updated", "order_id", id, "status", status)
		return cloneOrder(s.orders[i]), nil
	}
	return domain.Order{}, ErrNotFound
}

// persist rewrites the ledger, counter, and version tag. Write failures
// are logged; the in-memory ledger stays authoritative for the session.
func (s *Store) persist(ctx context.Context) {
	raw, err := json.Marshal(s.orders)
	if err != nil {
		s.logger.Warn("failed to serialize orders", "error", err)
		return
	}
	if err := s.store.Set(ctx, ordersKey, raw); err != nil {
		s.logger.Warn("failed to persist orders", "error", err)
	}
	if err := s.store.Set(ctx, counterKey, []byte(strconv.Itoa(s.nextID))); err != nil {
		s.logger.Warn("failed to persist order counter", "error", err)
	}
	if err := s.store.Set(ctx, versionKey, []byte(SchemaVersion)); err != nil {
		s.logger.Warn("failed to persist order schema version", "error", err)
	}
}

func cloneOrder(order domain.Order) domain.Order {
	cloned := order
	cloned.Items = domain.CloneItems(order.Items)
	return cloned
}
