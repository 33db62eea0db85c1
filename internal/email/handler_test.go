package email

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestHandler() *Handler {
	return NewHandler(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestHandleSend(t *testing.T) {
	h := newTestHandler()

	t.Run("accepts a valid envelope", func(t *testing.T) {
		body := `{"to":"customer@example.com","subject":"Payment instructions for order abc","body":"hi"}`
		req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.HandleSend(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var resp map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["status"] != "sent" {
			t.Errorf("expected status sent, got %q", resp["status"])
		}
	})

	t.Run("rejects invalid recipient", func(t *testing.T) {
		body := `{"to":"not-an-address","subject":"hello","body":"hi"}`
		req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.HandleSend(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("rejects missing subject", func(t *testing.T) {
		body := `{"to":"customer@example.com","body":"hi"}`
		req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.HandleSend(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader("{"))
		rec := httptest.NewRecorder()

		h.HandleSend(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
	})
}
