package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestHandler(catalog, checkout, backoffice *ServiceProxy) *Handler {
	unused := NewServiceProxy("http://unused", http.DefaultClient)
	if catalog == nil {
		catalog = unused
	}
	if checkout == nil {
		checkout = unused
	}
	if backoffice == nil {
		backoffice = unused
	}
	return NewHandler(catalog, checkout, backoffice, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandler_HandleCheckout(t *testing.T) {
	t.Run("proxies GET /orders with query string", func(t *testing.T) {
		checkoutServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/orders" {
				t.Errorf("expected /orders, got %s", r.URL.Path)
			}
			if r.URL.Query().Get("status") != "pending" {
				t.Errorf("expected status=pending, got %s", r.URL.RawQuery)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`[{"id":"1"}]`))
		}))
		defer checkoutServer.Close()

		handler := newTestHandler(nil, NewServiceProxy(checkoutServer.URL, checkoutServer.Client()), nil)

		req := httptest.NewRequest(http.MethodGet, "/orders?status=pending", nil)
		rec := httptest.NewRecorder()

		handler.HandleCheckout(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if rec.Header().Get("Content-Type") != "application/json" {
			t.Errorf("expected application/json, got %s", rec.Header().Get("Content-Type"))
		}
		if rec.Body.String() != `[{"id":"1"}]` {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("proxies POST /orders with body", func(t *testing.T) {
		checkoutServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			if string(body) != `{"customer_name":"Ada"}` {
				t.Errorf("unexpected body: %s", body)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"new-id"}`))
		}))
		defer checkoutServer.Close()

		handler := newTestHandler(nil, NewServiceProxy(checkoutServer.URL, checkoutServer.Client()), nil)

		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"customer_name":"Ada"}`))
		rec := httptest.NewRecorder()

		handler.HandleCheckout(rec, req)

		if rec.Code != http.StatusCreated {
			t.Errorf("expected status 201, got %d", rec.Code)
		}
	})

	t.Run("returns 502 when checkout service unavailable", func(t *testing.T) {
		handler := newTestHandler(nil, NewServiceProxy("http://localhost:99999", &http.Client{}), nil)

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		rec := httptest.NewRecorder()

		handler.HandleCheckout(rec, req)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", rec.Code)
		}

		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["error"] != "service unavailable" {
			t.Errorf("expected 'service unavailable', got %s", resp["error"])
		}
	})
}

func TestHandler_HandleCatalog(t *testing.T) {
	t.Run("forwards product lookups unchanged", func(t *testing.T) {
		catalogServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/products/prod-123" {
				t.Errorf("expected /products/prod-123, got %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"id":"prod-123","stock_quantity":10}`))
		}))
		defer catalogServer.Close()

		handler := newTestHandler(NewServiceProxy(catalogServer.URL, catalogServer.Client()), nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/products/prod-123", nil)
		rec := httptest.NewRecorder()

		handler.HandleCatalog(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("preserves downstream error status", func(t *testing.T) {
		catalogServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"product not found"}`))
		}))
		defer catalogServer.Close()

		handler := newTestHandler(NewServiceProxy(catalogServer.URL, catalogServer.Client()), nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/products/unknown", nil)
		rec := httptest.NewRecorder()

		handler.HandleCatalog(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleBackoffice(t *testing.T) {
	t.Run("forwards analytics queries", func(t *testing.T) {
		backofficeServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/analytics/summary" {
				t.Errorf("expected /analytics/summary, got %s", r.URL.Path)
			}
			if r.URL.Query().Get("days") != "7" {
				t.Errorf("expected days=7, got %s", r.URL.RawQuery)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"days":7,"order_count":3}`))
		}))
		defer backofficeServer.Close()

		handler := newTestHandler(nil, nil, NewServiceProxy(backofficeServer.URL, backofficeServer.Client()))

		req := httptest.NewRequest(http.MethodGet, "/analytics/summary?days=7", nil)
		rec := httptest.NewRecorder()

		handler.HandleBackoffice(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("returns 502 when backoffice service unavailable", func(t *testing.T) {
		handler := newTestHandler(nil, nil, NewServiceProxy("http://localhost:99999", &http.Client{}))

		req := httptest.NewRequest(http.MethodGet, "/settings/company", nil)
		rec := httptest.NewRecorder()

		handler.HandleBackoffice(rec, req)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", rec.Code)
		}
	})
}
