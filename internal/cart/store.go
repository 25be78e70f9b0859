// Package cart owns the authoritative in-memory line-item list, mirrored
// to the persistent blob store after every mutation. The store serves a
// single session; concurrent writers to the same persisted key are
// last-write-wins, which matches the original single-tab contract.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bluehouse-sports/storefront/internal/domain"
	"github.com/bluehouse-sports/storefront/internal/kv"
	"github.com/bluehouse-sports/storefront/internal/notify"
)

const storageKey = "bluehouse_cart"

var (
	ErrInvalidItem     = errors.New("cart: item needs a product id and a name")
	ErrInvalidQuantity = errors.New("cart: quantity must be an integer between 1 and 999")
	ErrUnknownDiscount = errors.New("cart: unknown discount code")
)

// InsufficientStockError names the product and how many units remain, so
// the notice shown to the user can say exactly what is still available.
type InsufficientStockError struct {
	ProductName string
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("cart: insufficient stock for %q, %d available", e.ProductName, e.Available)
}

// Catalog resolves current product data for stock validation.
type Catalog interface {
	ProductByID(ctx context.Context, id int) (domain.Product, bool)
}

// State is the derived view of the cart delivered to subscribers. It is
// recomputed on every mutation and never persisted; only the line-item
// list is.
type State struct {
	Items        []domain.CartItem `json:"items"`
	ItemCount    int               `json:"item_count"`
	Subtotal     decimal.Decimal   `json:"subtotal"`
	Discount     decimal.Decimal   `json:"discount"`
	Total        decimal.Decimal   `json:"total"`
	DiscountCode string            `json:"discount_code,omitempty"`
}

type Store struct {
	catalog  Catalog
	store    kv.Store
	notifier notify.Notifier
	logger   *slog.Logger

	key   string
	codes map[string]int

	mu           sync.Mutex
	items        []domain.CartItem
	discountCode string
	subscribers  map[int]func(State)
	nextSubID    int

	mutations metric.Int64Counter
}

type Option func(*Store)

// WithDiscountCodes configures the accepted discount codes and their
// percentages off.
func WithDiscountCodes(codes map[string]int) Option {
	return func(s *Store) { s.codes = codes }
}

func WithStorageKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// NewStore loads the persisted cart, falling back to an empty one when
// the stored blob is missing or does not decode to an array.
func NewStore(ctx context.Context, catalog Catalog, store kv.Store, notifier notify.Notifier, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		catalog:     catalog,
		store:       store,
		notifier:    notifier,
		logger:      logger,
		key:         storageKey,
		codes:       map[string]int{},
		subscribers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}

	meter := otel.Meter("storefront/cart")
	s.mutations, _ = meter.Int64Counter("cart.mutations")

	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	raw, err := s.store.Get(ctx, s.key)
	if err != nil {
		if err != kv.ErrNotFound {
			s.logger.Warn("failed to load cart, starting empty", "error", err)
		}
		return
	}

	var items []domain.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		s.logger.Warn("discarding malformed cart blob", "error", err)
		return
	}
	s.items = items
}

// AddItem merges quantity into an existing line with the same composite
// key or appends a new line. Validation and stock failures leave the cart
// untouched and surface only as a user notice plus the returned error.
func (s *Store) AddItem(ctx context.Context, item domain.CartItem, quantity int) error {
	if item.ProductID <= 0 || item.Name == "" {
		s.notifier.Notify(notify.KindError, "This product cannot be added to the cart.")
		return ErrInvalidItem
	}
	if !domain.ValidQuantity(quantity) {
		s.notifier.Notify(notify.KindError, "Quantity must be between 1 and 999.")
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	existing := s.findLine(item.Key())
	requested := quantity + s.productQuantityLocked(item.ProductID, -1)
	if err := s.checkStock(ctx, item.ProductID, requested); err != nil {
		s.mu.Unlock()
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			s.notifier.Notify(notify.KindError,
				fmt.Sprintf("Only %d units of %s are available.", stockErr.Available, stockErr.ProductName))
		}
		return err
	}

	if existing >= 0 {
		s.items[existing].Quantity += quantity
	} else {
		line := item
		line.Quantity = quantity
		s.items = append(s.items, line)
	}

	state := s.commitLocked(ctx, "add")
	s.mu.Unlock()

	s.notifier.Notify(notify.KindSuccess, fmt.Sprintf("%s added to the cart.", item.Name))
	s.publish(state)
	return nil
}

// RemoveItem drops the line matching the composite key; unknown lines are
// a no-op.
func (s *Store) RemoveItem(ctx context.Context, productID int, size string, shoeSize int) {
	s.mu.Lock()
	idx := s.findLine(domain.LineKey{ProductID: productID, Size: size, ShoeSize: shoeSize})
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	state := s.commitLocked(ctx, "remove")
	s.mu.Unlock()

	s.publish(state)
}

// UpdateQuantity sets a line's quantity, re-validating against current
// stock. Zero delegates to RemoveItem; non-positive quantities never
// persist.
func (s *Store) UpdateQuantity(ctx context.Context, productID int, quantity int, size string, shoeSize int) error {
	if quantity == 0 {
		s.RemoveItem(ctx, productID, size, shoeSize)
		return nil
	}
	if !domain.ValidQuantity(quantity) {
		s.notifier.Notify(notify.KindError, "Quantity must be between 1 and 999.")
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	idx := s.findLine(domain.LineKey{ProductID: productID, Size: size, ShoeSize: shoeSize})
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	requested := quantity + s.productQuantityLocked(productID, idx)
	if err := s.checkStock(ctx, productID, requested); err != nil {
		s.mu.Unlock()
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			s.notifier.Notify(notify.KindError,
				fmt.Sprintf("Only %d units of %s are available.", stockErr.Available, stockErr.ProductName))
		}
		return err
	}

	s.items[idx].Quantity = quantity
	state := s.commitLocked(ctx, "update")
	s.mu.Unlock()

	s.publish(state)
	return nil
}

// Clear empties the cart and persists the empty list.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.items = nil
	s.discountCode = ""
	state := s.commitLocked(ctx, "clear")
	s.mu.Unlock()

	s.publish(state)
}

// ApplyDiscount activates a configured percentage discount code.
func (s *Store) ApplyDiscount(ctx context.Context, code string) error {
	s.mu.Lock()
	if _, ok := s.codes[code]; !ok {
		s.mu.Unlock()
		s.notifier.Notify(notify.KindError, "Invalid discount code.")
		return ErrUnknownDiscount
	}
	s.discountCode = code
	state := s.snapshotLocked()
	s.mu.Unlock()

	s.notifier.Notify(notify.KindSuccess, fmt.Sprintf("Discount code %s applied.", code))
	s.publish(state)
	return nil
}

// RemoveDiscount restores the undiscounted total.
func (s *Store) RemoveDiscount() {
	s.mu.Lock()
	s.discountCode = ""
	state := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(state)
}

func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneItems(s.items)
}

// ItemCount sums line quantities, not line count; it feeds the cart badge.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countItems(s.items)
}

// Subtotal sums price times quantity over validated quantities only: a
// corrupted persisted quantity contributes zero rather than failing.
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return subtotal(s.items)
}

// Total is the subtotal with the active percentage discount applied.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := subtotal(s.items)
	return sub.Sub(s.discountLocked(sub))
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for synchronous delivery of the cart state after
// each mutation. The returned func unregisters it; consumers must call it
// on teardown.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

func (s *Store) findLine(key domain.LineKey) int {
	for i, item := range s.items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}

// productQuantityLocked sums the quantities already carried for a
// product across every size line. Stock is per product, not per line,
// so validation must see the whole of it. exclude skips one line index
// (-1 for none).
func (s *Store) productQuantityLocked(productID, exclude int) int {
	var total int
	for i, item := range s.items {
		if i == exclude || item.ProductID != productID {
			continue
		}
		total += item.Quantity
	}
	return total
}

func (s *Store) checkStock(ctx context.Context, productID, requested int) error {
	product, ok := s.catalog.ProductByID(ctx, productID)
	if !ok || product.Stock == nil {
		return nil
	}
	if requested > *product.Stock {
		return &InsufficientStockError{ProductName: product.Name, Available: *product.Stock}
	}
	return nil
}

// commitLocked persists the line list and snapshots the derived state.
// A write failure is logged; the in-memory list stays authoritative for
// the session.
func (s *Store) commitLocked(ctx context.Context, op string) State {
	raw, err := json.Marshal(s.items)
	if err != nil {
		s.logger.Warn("failed to serialize cart", "error", err)
	} else if err := s.store.Set(ctx, s.key, raw); err != nil {
		s.logger.Warn("failed to persist cart", "error", err)
	}

	s.mutations.Add(ctx, 1, metric.WithAttributes(attrOp(op)))
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	sub := subtotal(s.items)
	discount := s.discountLocked(sub)
	return State{
		Items:        domain.CloneItems(s.items),
		ItemCount:    countItems(s.items),
		Subtotal:     sub,
		Discount:     discount,
		Total:        sub.Sub(discount),
		DiscountCode: s.discountCode,
	}
}

func (s *Store) discountLocked(sub decimal.Decimal) decimal.Decimal {
	if s.discountCode == "" {
		return decimal.Zero
	}
	percent := s.codes[s.discountCode]
	return sub.Mul(decimal.NewFromInt(int64(percent))).Div(decimal.NewFromInt(100))
}

// publish delivers the snapshot synchronously, outside the store lock so
// subscribers can call back into the store.
func (s *Store) publish(state State) {
	s.mu.Lock()
	fns := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

func attrOp(op string) attribute.KeyValue {
	return attribute.String("operation", op)
}

func countItems(items []domain.CartItem) int {
	var count int
	for _, item := range items {
		if domain.ValidQuantity(item.Quantity) {
			count += item.Quantity
		}
	}
	return count
}

func subtotal(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if !domain.ValidQuantity(item.Quantity) {
			continue
		}
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
