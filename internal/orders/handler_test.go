package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bluehouse-sports/storefront/internal/domain"
	"github.com/bluehouse-sports/storefront/internal/kv"
)

func TestHandler_HandleList(t *testing.T) {
	store := NewStore(context.Background(), kv.NewMemoryStore(), testLogger())
	create(t, store)
	create(t, store)
	handler := NewHandler(store, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()

	handler.HandleList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var orders []domain.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &orders); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("expected 2 orders, got %d", len(orders))
	}
}

func TestHandler_HandleGet(t *testing.T) {
	store := NewStore(context.Background(), kv.NewMemoryStore(), testLogger())
	created := create(t, store)
	handler := NewHandler(store, nil, testLogger())

	t.Run("returns the order", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders/1", nil)
		req.SetPathValue("id", "1")
		rec := httptest.NewRecorder()

		handler.HandleGet(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var order domain.Order
		if err := json.Unmarshal(rec.Body.Bytes(), &order); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if order.OrderNumber != created.OrderNumber {
			t.Errorf("expected order number %s, got %s", created.OrderNumber, order.OrderNumber)
		}
	})

	t.Run("returns 404 for unknown id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders/99", nil)
		req.SetPathValue("id", "99")
		rec := httptest.NewRecorder()

		handler.HandleGet(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("returns 400 for a non-numeric id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders/abc", nil)
		req.SetPathValue("id", "abc")
		rec := httptest.NewRecorder()

		handler.HandleGet(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleUpdateStatus(t *testing.T) {
	t.Run("applies an allowed transition", func(t *testing.T) {
		store := NewStore(context.Background(), kv.NewMemoryStore(), testLogger())
		create(t, store)
		handler := NewHandler(store, nil, testLogger())

		req := httptest.NewRequest(http.MethodPatch, "/orders/1/status", strings.NewReader(`{"status":"processing"}`))
		req.SetPathValue("id", "1")
		rec := httptest.NewRecorder()

		handler.HandleUpdateStatus(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var order domain.Order
		if err := json.Unmarshal(rec.Body.Bytes(), &order); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if order.Status != domain.OrderStatusProcessing {
			t.Errorf("expected status processing, got %s", order.Status)
		}
	})

	t.Run("returns 422 for a blocked transition", func(t *testing.T) {
		store := NewStore(context.Background(), kv.NewMemoryStore(), testLogger())
		create(t, store)
		handler := NewHandler(store, nil, testLogger())

		req := httptest.NewRequest(http.MethodPatch, "/orders/1/status", strings.NewReader(`{"status":"delivered"}`))
		req.SetPathValue("id", "1")
		rec := httptest.NewRecorder()

		handler.HandleUpdateStatus(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected status 422, got %d", rec.Code)
		}
	})

	t.Run("returns 422 for an unknown status", func(t *testing.T) {
		store := NewStore(context.Background(), kv.NewMemoryStore(), testLogger())
		create(t, store)
		handler := NewHandler(store, nil, testLogger())

		req := httptest.NewRequest(http.MethodPatch, "/orders/1/status", strings.NewReader(`{"status":"lost"}`))
		req.SetPathValue("id", "1")
		rec := httptest.NewRecorder()

		handler.HandleUpdateStatus(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("expected status 422, got %d", rec.Code)
		}
	})

	t.Run("returns 404 for an unknown order", func(t *testing.T) {
		store := NewStore(context.Background(), kv.NewMemoryStore(), testLogger())
		handler := NewHandler(store, nil, testLogger())

		req := httptest.NewRequest(http.MethodPatch, "/orders/9/status", strings.NewReader(`{"status":"processing"}`))
		req.SetPathValue("id", "9")
		rec := httptest.NewRecorder()

		handler.HandleUpdateStatus(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}
