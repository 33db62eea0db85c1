package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shopfront-labs/shopfront/internal/domain"
)

// FulfillmentHandler reacts to placed orders: it reserves stock in the
// catalog, moves the order to awaiting_payment and mails bank-transfer
// instructions. When any reservation fails it unwinds the ones that
// succeeded, cancels the order and mails a cancellation notice.
type FulfillmentHandler struct {
	emailServiceURL    string
	checkoutServiceURL string
	catalogServiceURL  string
	httpClient         *http.Client
	logger             *slog.Logger
}

func NewFulfillmentHandler(emailServiceURL, checkoutServiceURL, catalogServiceURL string, client *http.Client, logger *slog.Logger) *FulfillmentHandler {
	return &FulfillmentHandler{
		emailServiceURL:    emailServiceURL,
		checkoutServiceURL: checkoutServiceURL,
		catalogServiceURL:  catalogServiceURL,
		httpClient:         client,
		logger:             logger,
	}
}

type reservation struct {
	ProductID string
	Quantity  int
}

func (h *FulfillmentHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order placed event: %w", err)
	}

	h.logger.Info("processing placed order", "order_id", event.OrderID, "total", event.Total)

	reserved, err := h.reserveStock(ctx, event)
	if err != nil {
		h.logger.Error("failed to reserve stock", "error", err, "order_id", event.OrderID)

		h.releaseStock(ctx, reserved)

		if err := h.updateOrderStatus(ctx, event.OrderID, domain.OrderStatusCancelled); err != nil {
			h.logger.Error("failed to cancel order", "error", err, "order_id", event.OrderID)
			return fmt.Errorf("cancel order after stock failure: %w", err)
		}

		if err := h.sendCancellationEmail(ctx, event); err != nil {
			h.logger.Error("failed to send cancellation email", "error", err, "order_id", event.OrderID)
			return fmt.Errorf("send cancellation email: %w", err)
		}

		h.logger.Info("order cancelled due to insufficient stock", "order_id", event.OrderID)
		return nil
	}

	if err := h.sendPaymentInstructionsEmail(ctx, event); err != nil {
		h.logger.Error("failed to send payment instructions", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send payment instructions: %w", err)
	}

	if err := h.updateOrderStatus(ctx, event.OrderID, domain.OrderStatusAwaitingPayment); err != nil {
		h.logger.Error("failed to update order status", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("update order status: %w", err)
	}

	h.logger.Info("order awaiting payment", "order_id", event.OrderID)
	return nil
}

// reserveStock reserves each product once with the quantities of all its
// variant lines summed, since stock is tracked per product.
func (h *FulfillmentHandler) reserveStock(ctx context.Context, event domain.OrderPlacedEvent) ([]reservation, error) {
	perProduct := make(map[string]int)
	var productIDs []string
	for _, item := range event.Items {
		if _, seen := perProduct[item.ProductID]; !seen {
			productIDs = append(productIDs, item.ProductID)
		}
		perProduct[item.ProductID] += item.Quantity
	}

	var reserved []reservation
	for _, productID := range productIDs {
		quantity := perProduct[productID]

		body := map[string]int{"quantity": quantity}
		data, err := json.Marshal(body)
		if err != nil {
			return reserved, fmt.Errorf("marshal reserve request: %w", err)
		}

		url := fmt.Sprintf("%s/products/%s/stock/reserve", h.catalogServiceURL, productID)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return reserved, fmt.Errorf("create reserve request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := h.httpClient.Do(req)
		if err != nil {
			return reserved, fmt.Errorf("reserve stock for product %s: %w", productID, err)
		}
		_ = resp.Body.Close()

		if resp.StatusCode == http.StatusConflict {
			return reserved, fmt.Errorf("insufficient stock for product %s", productID)
		}

		if resp.StatusCode != http.StatusOK {
			return reserved, fmt.Errorf("catalog service returned status %d for product %s", resp.StatusCode, productID)
		}

		reserved = append(reserved, reservation{ProductID: productID, Quantity: quantity})
	}

	return reserved, nil
}

func (h *FulfillmentHandler) releaseStock(ctx context.Context, reserved []reservation) {
	for _, res := range reserved {
		body := map[string]int{"quantity": res.Quantity}
		data, err := json.Marshal(body)
		if err != nil {
			h.logger.Error("failed to marshal release request", "error", err, "product_id", res.ProductID)
			continue
		}

		url := fmt.Sprintf("%s/products/%s/stock/release", h.catalogServiceURL, res.ProductID)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			h.logger.Error("failed to create release request", "error", err, "product_id", res.ProductID)
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := h.httpClient.Do(req)
		if err != nil {
			h.logger.Error("failed to release stock", "error", err, "product_id", res.ProductID)
			continue
		}
		_ = resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			h.logger.Error("failed to release stock", "status", resp.StatusCode, "product_id", res.ProductID)
		}
	}
}

func (h *FulfillmentHandler) sendPaymentInstructionsEmail(ctx context.Context, event domain.OrderPlacedEvent) error {
	body := map[string]string{
		"to":      event.CustomerEmail,
		"subject": "Payment instructions for order " + event.OrderID,
		"body": fmt.Sprintf("Thank you for your order %s. Please transfer the order total and quote the order id as the payment reference. Your order ships once the transfer arrives.",
			event.OrderID),
	}

	return h.sendEmail(ctx, body)
}

func (h *FulfillmentHandler) sendCancellationEmail(ctx context.Context, event domain.OrderPlacedEvent) error {
	body := map[string]string{
		"to":      event.CustomerEmail,
		"subject": "Order cancelled: " + event.OrderID,
		"body":    fmt.Sprintf("Your order %s was cancelled because an item sold out before it could be reserved. Nothing has been charged.", event.OrderID),
	}

	return h.sendEmail(ctx, body)
}

func (h *FulfillmentHandler) sendEmail(ctx context.Context, body map[string]string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
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

func (h *FulfillmentHandler) updateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	body := map[string]string{
		"status": string(status),
	}

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/orders/%s/status", h.checkoutServiceURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(data))
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
		return fmt.Errorf("checkout service returned status %d", resp.StatusCode)
	}

	return nil
}
