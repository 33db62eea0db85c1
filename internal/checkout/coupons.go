package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopfront-labs/shopfront/internal/domain"
)

type couponRequest struct {
	Code          string              `json:"code"`
	DiscountType  domain.DiscountType `json:"discount_type"`
	DiscountValue int64               `json:"discount_value"`
	MinOrder      int64               `json:"min_order"`
	MaxDiscount   int64               `json:"max_discount"`
	UsageLimit    int                 `json:"usage_limit"`
	IsActive      bool                `json:"is_active"`
	ExpiresAt     time.Time           `json:"expires_at,omitzero"`
}

func (req *couponRequest) validate() string {
	if req.Code == "" {
		return "missing coupon code"
	}
	if req.DiscountType != domain.DiscountTypePercentage && req.DiscountType != domain.DiscountTypeFixed {
		return "discount type must be percentage or fixed"
	}
	if req.DiscountValue <= 0 {
		return "discount value must be positive"
	}
	if req.DiscountType == domain.DiscountTypePercentage && req.DiscountValue > 100 {
		return "percentage discount cannot exceed 100"
	}
	if req.MinOrder < 0 || req.MaxDiscount < 0 || req.UsageLimit < 0 {
		return "minimum order, maximum discount and usage limit must be non-negative"
	}
	return ""
}

func (h *Handler) HandleListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.repo.ListCoupons(r.Context())
	if err != nil {
		h.logger.Error("failed to list coupons", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, coupons)
}

func (h *Handler) HandleGetCoupon(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		h.writeError(w, http.StatusBadRequest, "missing coupon code")
		return
	}

	coupon, err := h.repo.GetCouponByCode(r.Context(), code)
	if err != nil {
		h.logger.Error("failed to get coupon", "error", err, "code", code)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if coupon == nil {
		h.writeError(w, http.StatusNotFound, "coupon not found")
		return
	}

	h.writeJSON(w, http.StatusOK, coupon)
}

func (h *Handler) HandleCreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if msg := req.validate(); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	coupon := &domain.Coupon{
		Code:          req.Code,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		MinOrder:      req.MinOrder,
		MaxDiscount:   req.MaxDiscount,
		UsageLimit:    req.UsageLimit,
		IsActive:      req.IsActive,
		ExpiresAt:     req.ExpiresAt,
		CreatedAt:     time.Now().UTC(),
	}

	if err := h.repo.CreateCoupon(r.Context(), coupon); err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			h.writeError(w, http.StatusConflict, "coupon code already exists")
			return
		}
		h.logger.Error("failed to create coupon", "error", err, "code", coupon.Code)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.screen != nil {
		h.screen.Add(coupon.Code)
	}

	h.logger.Info("coupon created", "code", coupon.Code, "type", coupon.DiscountType)
	h.writeJSON(w, http.StatusCreated, coupon)
}

func (h *Handler) HandleUpdateCoupon(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		h.writeError(w, http.StatusBadRequest, "missing coupon code")
		return
	}

	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Code = code
	if msg := req.validate(); msg != "" {
		h.writeError(w, http.StatusBadRequest, msg)
		return
	}

	coupon, err := h.repo.UpdateCoupon(r.Context(), &domain.Coupon{
		Code:          code,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue,
		MinOrder:      req.MinOrder,
		MaxDiscount:   req.MaxDiscount,
		UsageLimit:    req.UsageLimit,
		IsActive:      req.IsActive,
		ExpiresAt:     req.ExpiresAt,
	})
	if err != nil {
		h.logger.Error("failed to update coupon", "error", err, "code", code)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if coupon == nil {
		h.writeError(w, http.StatusNotFound, "coupon not found")
		return
	}

	h.logger.Info("coupon updated", "code", code)
	h.writeJSON(w, http.StatusOK, coupon)
}

func (h *Handler) HandleDeleteCoupon(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		h.writeError(w, http.StatusBadRequest, "missing coupon code")
		return
	}

	deleted, err := h.repo.DeleteCoupon(r.Context(), code)
	if err != nil {
		h.logger.Error("failed to delete coupon", "error", err, "code", code)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !deleted {
		h.writeError(w, http.StatusNotFound, "coupon not found")
		return
	}

	h.logger.Info("coupon deleted", "code", code)
	w.WriteHeader(http.StatusNoContent)
}
