package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bluehouse-sports/storefront/internal/domain"
)

func eventPayload(t *testing.T) []byte {
	t.Helper()

	payload, err := json.Marshal(domain.OrderCreatedEvent{
		EventID:     "evt-1",
		OrderID:     1,
		OrderNumber: "BH-1-1",
		Items: []domain.CartItem{
			{ProductID: 7, Name: "Tenis X", Quantity: 2},
		},
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("failed to marshal event: %v", err)
	}
	return payload
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFulfillmentHandler_Handle(t *testing.T) {
	t.Run("advances the order and sends the confirmation", func(t *testing.T) {
		var patched atomic.Bool
		storefront := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPatch {
				t.Errorf("expected PATCH, got %s", r.Method)
			}
			if r.URL.Path != "/orders/1/status" {
				t.Errorf("expected /orders/1/status, got %s", r.URL.Path)
			}
			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("failed to decode status body: %v", err)
			}
			if body["status"] != "processing" {
				t.Errorf("expected status processing, got %s", body["status"])
			}
			patched.Store(true)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":1,"status":"processing"}`))
		}))
		defer storefront.Close()

		var email map[string]string
		emailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/send" {
				t.Errorf("expected /send, got %s", r.URL.Path)
			}
			if err := json.NewDecoder(r.Body).Decode(&email); err != nil {
				t.Errorf("failed to decode email body: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"sent"}`))
		}))
		defer emailServer.Close()

		handler := NewFulfillmentHandler(storefront.URL, emailServer.URL, "shopper@example.com", http.DefaultClient, discardLogger())

		if err := handler.Handle(context.Background(), eventPayload(t)); err != nil {
			t.Fatalf("handler failed: %v", err)
		}
		if !patched.Load() {
			t.Error("expected the order status to be patched")
		}
		if email["to"] != "shopper@example.com" {
			t.Errorf("expected recipient shopper@example.com, got %s", email["to"])
		}
		if email["subject"] != "Order confirmation: BH-1-1" {
			t.Errorf("unexpected subject: %s", email["subject"])
		}
	})

	t.Run("treats an already advanced order as done", func(t *testing.T) {
		storefront := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":"status transition not allowed"}`))
		}))
		defer storefront.Close()

		var sent atomic.Bool
		emailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sent.Store(true)
			_, _ = w.Write([]byte(`{"status":"sent"}`))
		}))
		defer emailServer.Close()

		handler := NewFulfillmentHandler(storefront.URL, emailServer.URL, "shopper@example.com", http.DefaultClient, discardLogger())

		if err := handler.Handle(context.Background(), eventPayload(t)); err != nil {
			t.Fatalf("expected redelivered event to succeed, got %v", err)
		}
		if !sent.Load() {
			t.Error("expected the confirmation to still be sent")
		}
	})

	t.Run("storefront failure aborts before the email", func(t *testing.T) {
		storefront := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer storefront.Close()

		var sent atomic.Bool
		emailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sent.Store(true)
		}))
		defer emailServer.Close()

		handler := NewFulfillmentHandler(storefront.URL, emailServer.URL, "shopper@example.com", http.DefaultClient, discardLogger())

		if err := handler.Handle(context.Background(), eventPayload(t)); err == nil {
			t.Fatal("expected an error")
		}
		if sent.Load() {
			t.Error("expected no email after a storefront failure")
		}
	})

	t.Run("email failure surfaces for redelivery", func(t *testing.T) {
		storefront := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":1,"status":"processing"}`))
		}))
		defer storefront.Close()

		emailServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer emailServer.Close()

		handler := NewFulfillmentHandler(storefront.URL, emailServer.URL, "shopper@example.com", http.DefaultClient, discardLogger())

		if err := handler.Handle(context.Background(), eventPayload(t)); err == nil {
			t.Fatal("expected an error")
		}
	})

	t.Run("rejects a malformed payload", func(t *testing.T) {
		handler := NewFulfillmentHandler("http://unused", "http://unused", "shopper@example.com", http.DefaultClient, discardLogger())

		if err := handler.Handle(context.Background(), []byte("not json")); err == nil {
			t.Fatal("expected an error")
		}
	})
}
