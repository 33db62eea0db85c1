package catalog

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopfront-labs/shopfront/internal/domain"
)

type Handler struct {
	repo   *ProductRepository
	logger *slog.Logger
}

func NewHandler(repo *ProductRepository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

type productRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Image         string   `json:"image"`
	Price         int64    `json:"price"`
	SalePrice     int64    `json:"sale_price"`
	StockQuantity int      `json:"stock_quantity"`
	Sizes         []string `json:"sizes"`
	Colors        []string `json:"colors"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("products listed", "count", len(products))
	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	product, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.Price <= 0 {
		h.writeError(w, http.StatusBadRequest, "name and a positive price are required")
		return
	}

	product := &domain.Product{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Image:         req.Image,
		Price:         req.Price,
		SalePrice:     req.SalePrice,
		StockQuantity: req.StockQuantity,
		Sizes:         req.Sizes,
		Colors:        req.Colors,
		CreatedAt:     time.Now().UTC(),
	}

	if err := h.repo.Create(r.Context(), product); err != nil {
		h.logger.Error("failed to create product", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("product created", "product_id", product.ID, "name", product.Name)
	h.writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product := &domain.Product{
		ID:            id,
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Image:         req.Image,
		Price:         req.Price,
		SalePrice:     req.SalePrice,
		StockQuantity: req.StockQuantity,
		Sizes:         req.Sizes,
		Colors:        req.Colors,
	}

	updated, err := h.repo.Update(r.Context(), product)
	if err != nil {
		h.logger.Error("failed to update product", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if updated == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.logger.Info("product updated", "product_id", id)
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	deleted, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete product", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !deleted {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.logger.Info("product deleted", "product_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	stock, err := h.repo.GetStock(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get stock", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if stock == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.writeJSON(w, http.StatusOK, stock)
}

type stockRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Quantity <= 0 {
		h.writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	stock, err := h.repo.GetStock(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get stock", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if stock == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	if err := h.repo.Reserve(r.Context(), id, req.Quantity); err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			h.writeError(w, http.StatusConflict, "insufficient stock")
			return
		}
		h.logger.Error("failed to reserve stock", "error", err, "product_id", id, "quantity", req.Quantity)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	stock, err = h.repo.GetStock(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get updated stock", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("stock reserved", "product_id", id, "quantity", req.Quantity)
	h.writeJSON(w, http.StatusOK, stock)
}

func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.repo.Release(r.Context(), id, req.Quantity); err != nil {
		h.logger.Error("failed to release stock", "error", err, "product_id", id, "quantity", req.Quantity)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	stock, err := h.repo.GetStock(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get updated stock", "error", err, "product_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("stock released", "product_id", id, "quantity", req.Quantity)
	h.writeJSON(w, http.StatusOK, stock)
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
