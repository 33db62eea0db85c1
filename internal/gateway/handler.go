package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// Handler routes storefront and back-office traffic to the owning service.
// Catalog owns products and stock, checkout owns carts, quotes, coupons and
// orders, and backoffice owns settings, founders and analytics.
type Handler struct {
	catalogProxy    *ServiceProxy
	checkoutProxy   *ServiceProxy
	backofficeProxy *ServiceProxy
	logger          *slog.Logger
}

func NewHandler(catalogProxy, checkoutProxy, backofficeProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		catalogProxy:    catalogProxy,
		checkoutProxy:   checkoutProxy,
		backofficeProxy: backofficeProxy,
		logger:          logger,
	}
}

func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.catalogProxy, r.URL.Path)
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.checkoutProxy, r.URL.Path)
}

func (h *Handler) HandleBackoffice(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.backofficeProxy, r.URL.Path)
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy, path string) {
	resp, err := proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		h.writeError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}
