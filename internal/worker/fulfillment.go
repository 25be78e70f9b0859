// Package worker reacts to order.created events: it moves the order from
// pending to processing on the storefront and sends the confirmation
// email. A failure before the offset commits means the event redelivers.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bluehouse-sports/storefront/internal/domain"
)

type FulfillmentHandler struct {
	storefrontURL string
	emailURL      string
	customerEmail string
	httpClient    *http.Client
	logger        *slog.Logger
}

func NewFulfillmentHandler(storefrontURL, emailURL, customerEmail string, client *http.Client, logger *slog.Logger) *FulfillmentHandler {
	return &FulfillmentHandler{
		storefrontURL: storefrontURL,
		emailURL:      emailURL,
		customerEmail: customerEmail,
		httpClient:    client,
		logger:        logger,
	}
}

func (h *FulfillmentHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order created event: %w", err)
	}

	h.logger.Info("processing order", "order_id", event.OrderID, "order_number", event.OrderNumber)

	if err := h.advanceStatus(ctx, event.OrderID, domain.OrderStatusProcessing); err != nil {
		h.logger.Error("failed to advance order status", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("advance order %d: %w", event.OrderID, err)
	}

	if err := h.sendConfirmation(ctx, event); err != nil {
		h.logger.Error("failed to send confirmation email", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send confirmation for order %d: %w", event.OrderID, err)
	}

	h.logger.Info("order fulfillment started", "order_id", event.OrderID)
	return nil
}

func (h *FulfillmentHandler) advanceStatus(ctx context.Context, orderID int, status domain.OrderStatus) error {
	body, err := json.Marshal(map[string]string{"status": string(status)})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/orders/%d/status", h.storefrontURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	// 422 means the order already moved past pending, e.g. on a
	// redelivered event. Treat it as done rather than looping forever.
	if resp.StatusCode == http.StatusUnprocessableEntity {
		h.logger.Warn("order already advanced", "order_id", orderID)
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("storefront returned status %d", resp.StatusCode)
	}
	return nil
}

func (h *FulfillmentHandler) sendConfirmation(ctx context.Context, event domain.OrderCreatedEvent) error {
	body, err := json.Marshal(map[string]string{
		"to":      h.customerEmail,
		"subject": "Order confirmation: " + event.OrderNumber,
		"body":    fmt.Sprintf("Your order %s with %d items is being processed.", event.OrderNumber, len(event.Items)),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailURL+"/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}
	return nil
}
