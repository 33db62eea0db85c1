package backoffice

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopfront-labs/shopfront/internal/domain"
)

type Handler struct {
	repo   *Repository
	logger *slog.Logger
}

func NewHandler(repo *Repository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// --- settings ---

func (h *Handler) HandleGetCompanyInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.repo.GetCompanyInfo(r.Context())
	if err != nil {
		h.logger.Error("failed to get company info", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

func (h *Handler) HandlePutCompanyInfo(w http.ResponseWriter, r *http.Request) {
	var info domain.CompanyInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.repo.SaveCompanyInfo(r.Context(), &info); err != nil {
		h.logger.Error("failed to save company info", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("company info updated")
	h.writeJSON(w, http.StatusOK, info)
}

func (h *Handler) HandleGetPromoModal(w http.ResponseWriter, r *http.Request) {
	modal, err := h.repo.GetPromoModal(r.Context())
	if err != nil {
		h.logger.Error("failed to get promo modal", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, modal)
}

func (h *Handler) HandlePutPromoModal(w http.ResponseWriter, r *http.Request) {
	var modal domain.PromoModal
	if err := json.NewDecoder(r.Body).Decode(&modal); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if modal.Enabled && modal.Title == "" {
		h.writeError(w, http.StatusBadRequest, "an enabled promo modal needs a title")
		return
	}

	if err := h.repo.SavePromoModal(r.Context(), &modal); err != nil {
		h.logger.Error("failed to save promo modal", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("promo modal updated", "enabled", modal.Enabled)
	h.writeJSON(w, http.StatusOK, modal)
}

func (h *Handler) HandleGetDeliverySettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.repo.GetDeliverySettings(r.Context())
	if err != nil {
		h.logger.Error("failed to get delivery settings", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, settings)
}

func (h *Handler) HandlePutDeliverySettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.DeliverySettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if settings.FlatFee < 0 || settings.FreeOver < 0 {
		h.writeError(w, http.StatusBadRequest, "delivery fee and threshold must be non-negative")
		return
	}

	if err := h.repo.SaveDeliverySettings(r.Context(), &settings); err != nil {
		h.logger.Error("failed to save delivery settings", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("delivery settings updated", "flat_fee", settings.FlatFee, "free_over", settings.FreeOver)
	h.writeJSON(w, http.StatusOK, settings)
}

// --- founders ---

type founderRequest struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Bio   string `json:"bio"`
	Image string `json:"image"`
}

func (h *Handler) HandleListFounders(w http.ResponseWriter, r *http.Request) {
	founders, err := h.repo.ListFounders(r.Context())
	if err != nil {
		h.logger.Error("failed to list founders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, founders)
}

func (h *Handler) HandleCreateFounder(w http.ResponseWriter, r *http.Request) {
	var req founderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.Role == "" {
		h.writeError(w, http.StatusBadRequest, "name and role are required")
		return
	}

	founder := &domain.Founder{
		Name:  req.Name,
		Role:  req.Role,
		Bio:   req.Bio,
		Image: req.Image,
	}

	if err := h.repo.CreateFounder(r.Context(), founder); err != nil {
		h.logger.Error("failed to create founder", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("founder created", "founder_id", founder.ID)
	h.writeJSON(w, http.StatusCreated, founder)
}

func (h *Handler) HandleUpdateFounder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing founder id")
		return
	}

	var req founderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.Role == "" {
		h.writeError(w, http.StatusBadRequest, "name and role are required")
		return
	}

	founder := &domain.Founder{
		ID:    id,
		Name:  req.Name,
		Role:  req.Role,
		Bio:   req.Bio,
		Image: req.Image,
	}

	updated, err := h.repo.UpdateFounder(r.Context(), founder)
	if err != nil {
		h.logger.Error("failed to update founder", "error", err, "founder_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !updated {
		h.writeError(w, http.StatusNotFound, "founder not found")
		return
	}

	h.writeJSON(w, http.StatusOK, founder)
}

func (h *Handler) HandleDeleteFounder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing founder id")
		return
	}

	deleted, err := h.repo.DeleteFounder(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete founder", "error", err, "founder_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !deleted {
		h.writeError(w, http.StatusNotFound, "founder not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- analytics ---

func (h *Handler) HandleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 365 {
			h.writeError(w, http.StatusBadRequest, "days must be between 1 and 365")
			return
		}
		days = parsed
	}

	summary, err := h.repo.AnalyticsSummary(r.Context(), days)
	if err != nil {
		h.logger.Error("failed to compute analytics summary", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// --- helpers ---

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
