package checkout

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/shopfront-labs/shopfront/internal/domain"
	"github.com/shopfront-labs/shopfront/internal/messaging"
	"github.com/shopfront-labs/shopfront/internal/pricing"
)

var meter = otel.Meter("checkout")

type Handler struct {
	repo     *Repository
	catalog  *CatalogClient
	producer *messaging.Producer
	screen   *CodeScreen
	logger   *slog.Logger

	ordersPlaced     metric.Int64Counter
	couponRejections metric.Int64Counter
	stockDenials     metric.Int64Counter
}

func NewHandler(repo *Repository, catalog *CatalogClient, producer *messaging.Producer, screen *CodeScreen, logger *slog.Logger) (*Handler, error) {
	ordersPlaced, err := meter.Int64Counter("shopfront_orders_placed_total",
		metric.WithDescription("Orders accepted at checkout"))
	if err != nil {
		return nil, err
	}

	couponRejections, err := meter.Int64Counter("shopfront_coupon_rejections_total",
		metric.WithDescription("Coupon codes rejected by the evaluator"))
	if err != nil {
		return nil, err
	}

	stockDenials, err := meter.Int64Counter("shopfront_stock_denials_total",
		metric.WithDescription("Quantity changes denied by the stock ceiling"))
	if err != nil {
		return nil, err
	}

	return &Handler{
		repo:             repo,
		catalog:          catalog,
		producer:         producer,
		screen:           screen,
		logger:           logger,
		ordersPlaced:     ordersPlaced,
		couponRejections: couponRejections,
		stockDenials:     stockDenials,
	}, nil
}

// --- carts ---

func (h *Handler) HandleCreateCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.repo.CreateCart(r.Context())
	if err != nil {
		h.logger.Error("failed to create cart", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("cart created", "cart_id", cart.ID)
	h.writeJSON(w, http.StatusCreated, cart)
}

func (h *Handler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing cart id")
		return
	}

	cart, err := h.repo.GetCart(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get cart", "error", err, "cart_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if cart == nil {
		h.writeError(w, http.StatusNotFound, "cart not found")
		return
	}

	h.writeJSON(w, http.StatusOK, cart)
}

type cartItemRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

// HandleUpsertCartItem sets the quantity of one cart line. A quantity of
// zero or less removes the line. The stock ceiling is enforced across all
// variant lines of the product.
func (h *Handler) HandleUpsertCartItem(w http.ResponseWriter, r *http.Request) {
	cartID := r.PathValue("id")
	if cartID == "" {
		h.writeError(w, http.StatusBadRequest, "missing cart id")
		return
	}

	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ProductID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	cart, err := h.repo.GetCart(r.Context(), cartID)
	if err != nil {
		h.logger.Error("failed to get cart", "error", err, "cart_id", cartID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if cart == nil {
		h.writeError(w, http.StatusNotFound, "cart not found")
		return
	}

	key := domain.LineKey{ProductID: req.ProductID, Size: req.Size, Color: req.Color}

	if req.Quantity <= 0 {
		if err := h.repo.RemoveCartItem(r.Context(), cartID, key); err != nil {
			h.logger.Error("failed to remove cart item", "error", err, "cart_id", cartID)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		h.respondWithCart(w, r, cartID)
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		h.logger.Error("failed to fetch product", "error", err, "product_id", req.ProductID)
		h.writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}

	if product == nil {
		h.writeError(w, http.StatusUnprocessableEntity, "unknown product")
		return
	}

	if msg := validateVariant(product, req.Size, req.Color); msg != "" {
		h.writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	currentQty := 0
	for _, line := range cart.Items {
		if line.Key() == key {
			currentQty = line.Quantity
			break
		}
	}

	requestedTotal := pricing.TotalForProduct(cart.Items, req.ProductID, &key) + req.Quantity
	check := pricing.CheckStock(product.StockQuantity, requestedTotal, req.Quantity-currentQty)
	if !check.Allowed {
		h.stockDenials.Add(r.Context(), 1)
		h.logger.Info("cart change denied by stock ceiling",
			"cart_id", cartID, "product_id", req.ProductID, "requested_total", requestedTotal)
		h.writeError(w, http.StatusConflict, check.Message)
		return
	}

	item := domain.LineItem{
		ProductID: product.ID,
		Name:      product.Name,
		Size:      req.Size,
		Color:     req.Color,
		Quantity:  req.Quantity,
		Price:     product.EffectivePrice(),
		Image:     product.Image,
	}

	if err := h.repo.UpsertCartItem(r.Context(), cartID, item); err != nil {
		h.logger.Error("failed to upsert cart item", "error", err, "cart_id", cartID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("cart item set", "cart_id", cartID, "product_id", req.ProductID, "quantity", req.Quantity)
	h.respondWithCart(w, r, cartID)
}

func (h *Handler) HandleDeleteCart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing cart id")
		return
	}

	deleted, err := h.repo.DeleteCart(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete cart", "error", err, "cart_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !deleted {
		h.writeError(w, http.StatusNotFound, "cart not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondWithCart(w http.ResponseWriter, r *http.Request, cartID string) {
	cart, err := h.repo.GetCart(r.Context(), cartID)
	if err != nil || cart == nil {
		h.logger.Error("failed to reload cart", "error", err, "cart_id", cartID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, cart)
}

// --- quotes ---

type quoteRequest struct {
	Amount     int64  `json:"amount"`
	CouponCode string `json:"coupon_code"`
}

// HandleQuote previews a coupon against an order amount without touching
// the coupon's usage count.
func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Amount < 0 || req.CouponCode == "" {
		h.writeError(w, http.StatusBadRequest, "a coupon code and a non-negative amount are required")
		return
	}

	if h.screen != nil && !h.screen.MightContain(req.CouponCode) {
		h.couponRejections.Add(r.Context(), 1)
		h.writeJSON(w, http.StatusOK, pricing.CouponResult{
			Code:     req.CouponCode,
			Message:  "coupon not found",
			NewTotal: req.Amount,
		})
		return
	}

	coupon, err := h.repo.GetCouponByCode(r.Context(), req.CouponCode)
	if err != nil {
		h.logger.Error("failed to get coupon", "error", err, "code", req.CouponCode)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	result := pricing.EvaluateCoupon(coupon, req.Amount, time.Now().UTC())
	if !result.Valid {
		h.couponRejections.Add(r.Context(), 1)
	}
	if result.Code == "" {
		result.Code = req.CouponCode
	}

	h.writeJSON(w, http.StatusOK, result)
}

// --- orders ---

type createOrderRequest struct {
	CustomerName    string            `json:"customer_name"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerPhone   string            `json:"customer_phone"`
	ShippingAddress string            `json:"shipping_address"`
	DeliveryFee     int64             `json:"delivery_fee"`
	CouponCode      string            `json:"coupon_code"`
	Items           []cartItemRequest `json:"items"`
}

func (h *Handler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CustomerName == "" || req.CustomerEmail == "" || req.ShippingAddress == "" {
		h.writeError(w, http.StatusBadRequest, "customer name, email and shipping address are required")
		return
	}
	if len(req.Items) == 0 {
		h.writeError(w, http.StatusBadRequest, "order must contain at least one item")
		return
	}
	if req.DeliveryFee < 0 {
		h.writeError(w, http.StatusBadRequest, "delivery fee must be non-negative")
		return
	}
	for _, item := range req.Items {
		if item.ProductID == "" || item.Quantity <= 0 {
			h.writeError(w, http.StatusBadRequest, "every item needs a product id and a positive quantity")
			return
		}
	}

	items, errStatus, errMsg := h.priceItems(r, req.Items)
	if errMsg != "" {
		if errStatus == http.StatusConflict {
			h.stockDenials.Add(r.Context(), 1)
		}
		h.writeError(w, errStatus, errMsg)
		return
	}

	var subtotal int64
	for _, item := range items {
		subtotal += int64(item.Quantity) * item.Price
	}

	now := time.Now().UTC()
	order := &domain.Order{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		Items:           items,
		Subtotal:        subtotal,
		DeliveryFee:     req.DeliveryFee,
		CouponCode:      req.CouponCode,
		Status:          domain.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := h.repo.CreateOrder(r.Context(), order); err != nil {
		var rejected *CouponRejectedError
		if errors.As(err, &rejected) {
			h.couponRejections.Add(r.Context(), 1)
			h.writeError(w, http.StatusUnprocessableEntity, rejected.Result.Message)
			return
		}
		h.logger.Error("failed to create order", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.producer != nil {
		event := domain.OrderPlacedEvent{
			OrderID:       order.ID,
			CustomerEmail: order.CustomerEmail,
			Items:         order.Items,
			CouponCode:    order.CouponCode,
			Total:         order.Total,
			Timestamp:     order.CreatedAt,
		}
		if err := h.producer.Publish(r.Context(), order.ID, event); err != nil {
			h.logger.Error("failed to publish order placed event", "error", err, "order_id", order.ID)
		}
	}

	h.ordersPlaced.Add(r.Context(), 1)
	h.logger.Info("order placed", "order_id", order.ID, "total", order.Total, "coupon", order.CouponCode)
	h.writeJSON(w, http.StatusCreated, order)
}

// priceItems resolves each requested line against the catalog: server-side
// prices, variant validation, and the per-product stock ceiling.
func (h *Handler) priceItems(r *http.Request, reqs []cartItemRequest) ([]domain.LineItem, int, string) {
	items := make([]domain.LineItem, 0, len(reqs))
	for _, req := range reqs {
		items = append(items, domain.LineItem{
			ProductID: req.ProductID,
			Size:      req.Size,
			Color:     req.Color,
			Quantity:  req.Quantity,
		})
	}

	products := make(map[string]*domain.Product)
	for i := range items {
		product, ok := products[items[i].ProductID]
		if !ok {
			fetched, err := h.catalog.GetProduct(r.Context(), items[i].ProductID)
			if err != nil {
				h.logger.Error("failed to fetch product", "error", err, "product_id", items[i].ProductID)
				return nil, http.StatusBadGateway, "catalog unavailable"
			}
			if fetched == nil {
				return nil, http.StatusUnprocessableEntity, "unknown product " + items[i].ProductID
			}

			total := pricing.TotalForProduct(items, fetched.ID, nil)
			check := pricing.CheckStock(fetched.StockQuantity, total, total)
			if !check.Allowed {
				return nil, http.StatusConflict, check.Message
			}

			products[fetched.ID] = fetched
			product = fetched
		}

		if msg := validateVariant(product, items[i].Size, items[i].Color); msg != "" {
			return nil, http.StatusUnprocessableEntity, msg
		}

		items[i].Name = product.Name
		items[i].Price = product.EffectivePrice()
		items[i].Image = product.Image
	}

	return items, 0, ""
}

func (h *Handler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	status := domain.OrderStatus(r.URL.Query().Get("status"))

	orders, err := h.repo.ListOrders(r.Context(), status)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.GetOrder(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

var validStatuses = []domain.OrderStatus{
	domain.OrderStatusPending,
	domain.OrderStatusAwaitingPayment,
	domain.OrderStatusPaid,
	domain.OrderStatusShipped,
	domain.OrderStatusCancelled,
}

func (h *Handler) HandleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !slices.Contains(validStatuses, req.Status) {
		h.writeError(w, http.StatusBadRequest, "unknown order status")
		return
	}

	order, err := h.repo.UpdateOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		h.logger.Error("failed to update order status", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.logger.Info("order status updated", "order_id", order.ID, "status", order.Status)
	h.writeJSON(w, http.StatusOK, order)
}

type confirmPaymentRequest struct {
	Note string `json:"note"`
}

// HandleConfirmPayment records a manual bank-transfer confirmation from
// the back office.
func (h *Handler) HandleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	existing, err := h.repo.GetOrder(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if existing == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	order, err := h.repo.ConfirmPayment(r.Context(), id, req.Note)
	if err != nil {
		h.logger.Error("failed to confirm payment", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusConflict, "order is not awaiting payment")
		return
	}

	h.logger.Info("payment confirmed", "order_id", order.ID)
	h.writeJSON(w, http.StatusOK, order)
}

type editItemsRequest struct {
	Items []domain.LineItem `json:"items"`
}

type editItemsResponse struct {
	Operations []pricing.Operation `json:"operations"`
	Order      *domain.Order       `json:"order"`
}

// HandleEditOrderItems reconciles an edited draft of the order's line items
// against the persisted snapshot and applies the resulting plan.
func (h *Handler) HandleEditOrderItems(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req editItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.repo.GetOrder(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	ops := pricing.DiffLineItems(order.Items, req.Items)
	if len(ops) == 0 {
		h.writeJSON(w, http.StatusOK, editItemsResponse{Operations: []pricing.Operation{}, Order: order})
		return
	}

	updated, err := h.repo.ApplyItemOperations(r.Context(), id, ops)
	if err != nil {
		h.logger.Error("failed to apply item operations", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("order items edited", "order_id", id, "operations", len(ops))
	h.writeJSON(w, http.StatusOK, editItemsResponse{Operations: ops, Order: updated})
}

// --- helpers ---

func validateVariant(product *domain.Product, size, color string) string {
	if size != "" && len(product.Sizes) > 0 && !slices.Contains(product.Sizes, size) {
		return "unknown size " + size
	}
	if color != "" && len(product.Colors) > 0 && !matchesColor(product.Colors, color) {
		return "unknown color " + color
	}
	return ""
}

func matchesColor(colors []string, color string) bool {
	for _, c := range colors {
		if c == color {
			return true
		}
		if label, _ := domain.ParseColor(c); label == color {
			return true
		}
	}
	return false
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
