package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bluehouse-sports/storefront/internal/domain"
	"github.com/bluehouse-sports/storefront/internal/kv"
	"github.com/bluehouse-sports/storefront/internal/notify"
)

func newTestHandler(t *testing.T) (*Handler, *Store) {
	t.Helper()

	catalog := &fakeCatalog{products: map[int]domain.Product{
		7: tenisX(),
	}}
	store := NewStore(context.Background(), catalog, kv.NewMemoryStore(), &notify.Recorder{}, testLogger(),
		WithDiscountCodes(map[string]int{"BLUE25": 25}))
	return NewHandler(store, catalog, testLogger()), store
}

func TestHandler_HandleAddItem(t *testing.T) {
	t.Run("adds a product and returns the new state", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":7,"quantity":2}`))
		rec := httptest.NewRecorder()

		handler.HandleAddItem(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d", rec.Code)
		}
		var state State
		if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if state.ItemCount != 2 {
			t.Errorf("expected item count 2, got %d", state.ItemCount)
		}
	})

	t.Run("defaults quantity to one", func(t *testing.T) {
		handler, store := newTestHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":7}`))
		rec := httptest.NewRecorder()

		handler.HandleAddItem(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d", rec.Code)
		}
		if store.ItemCount() != 1 {
			t.Errorf("expected item count 1, got %d", store.ItemCount())
		}
	})

	t.Run("returns 404 for unknown product", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":99}`))
		rec := httptest.NewRecorder()

		handler.HandleAddItem(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("returns 409 with availability on stock conflict", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":7,"quantity":5}`))
		rec := httptest.NewRecorder()

		handler.HandleAddItem(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected status 409, got %d", rec.Code)
		}
		var resp map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["product"] != "Tenis X" {
			t.Errorf("expected product Tenis X, got %v", resp["product"])
		}
		if resp["available"] != float64(3) {
			t.Errorf("expected 3 available, got %v", resp["available"])
		}
	})

	t.Run("returns 422 for out-of-bound quantity", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":7,"quantity":1000}`))
		rec := httptest.NewRecorder()

		handler.HandleAddItem(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected status 422, got %d", rec.Code)
		}
	})

	t.Run("returns 400 for malformed body", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader("not json"))
		rec := httptest.NewRecorder()

		handler.HandleAddItem(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleUpdateQuantity(t *testing.T) {
	t.Run("updates the line and returns the state", func(t *testing.T) {
		handler, store := newTestHandler(t)
		if err := store.AddItem(context.Background(), itemFor(tenisX()), 1); err != nil {
			t.Fatalf("seed cart: %v", err)
		}

		req := httptest.NewRequest(http.MethodPatch, "/cart/items", strings.NewReader(`{"product_id":7,"quantity":3}`))
		rec := httptest.NewRecorder()

		handler.HandleUpdateQuantity(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if store.ItemCount() != 3 {
			t.Errorf("expected item count 3, got %d", store.ItemCount())
		}
	})

	t.Run("zero quantity removes the line", func(t *testing.T) {
		handler, store := newTestHandler(t)
		if err := store.AddItem(context.Background(), itemFor(tenisX()), 2); err != nil {
			t.Fatalf("seed cart: %v", err)
		}

		req := httptest.NewRequest(http.MethodPatch, "/cart/items", strings.NewReader(`{"product_id":7,"quantity":0}`))
		rec := httptest.NewRecorder()

		handler.HandleUpdateQuantity(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if len(store.Items()) != 0 {
			t.Errorf("expected empty cart, got %d lines", len(store.Items()))
		}
	})
}

func TestHandler_HandleRemoveItem(t *testing.T) {
	handler, store := newTestHandler(t)
	if err := store.AddItem(context.Background(), itemFor(tenisX()), 2); err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/cart/items?product_id=7", nil)
	rec := httptest.NewRecorder()

	handler.HandleRemoveItem(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if len(store.Items()) != 0 {
		t.Errorf("expected empty cart, got %d lines", len(store.Items()))
	}

	t.Run("rejects a missing product id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/cart/items", nil)
		rec := httptest.NewRecorder()

		handler.HandleRemoveItem(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleDiscount(t *testing.T) {
	t.Run("applies a known code", func(t *testing.T) {
		handler, store := newTestHandler(t)
		if err := store.AddItem(context.Background(), itemFor(tenisX()), 2); err != nil {
			t.Fatalf("seed cart: %v", err)
		}

		req := httptest.NewRequest(http.MethodPost, "/cart/discount", strings.NewReader(`{"code":"BLUE25"}`))
		rec := httptest.NewRecorder()

		handler.HandleApplyDiscount(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var state State
		if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if state.DiscountCode != "BLUE25" {
			t.Errorf("expected discount code BLUE25, got %s", state.DiscountCode)
		}
	})

	t.Run("rejects an unknown code", func(t *testing.T) {
		handler, _ := newTestHandler(t)

		req := httptest.NewRequest(http.MethodPost, "/cart/discount", strings.NewReader(`{"code":"NOPE"}`))
		rec := httptest.NewRecorder()

		handler.HandleApplyDiscount(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected status 422, got %d", rec.Code)
		}
	})
}
