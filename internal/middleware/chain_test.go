package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestMiddlewareChain_SessionBeforeLogging は
// SessionMiddlewareの後に置いたLoggingMiddlewareがuser_idとrequest_idを記録することを検証する。
func TestMiddlewareChain_SessionBeforeLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	resolver := &mockSessionResolver{
		currentUserIDFn: func(_ context.Context, _ string) (int64, bool, error) {
			return 5, true, nil
		},
	}

	handler := NewRequestIDMiddleware()(
		NewSessionMiddleware(resolver)(
			NewLoggingMiddleware(logger)(okHandler()),
		),
	)

	req := httptest.NewRequest(http.MethodGet, "/recipes", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "valid"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	if entry["user_id"] != float64(5) {
		t.Errorf("user_id = %v, want 5", entry["user_id"])
	}
	if entry["request_id"] != w.Header().Get(RequestIDHeader) {
		t.Errorf("request_id = %v, want %q", entry["request_id"], w.Header().Get(RequestIDHeader))
	}
}

// TestMiddlewareChain_RateLimitUsesSessionUser は
// SessionMiddlewareで注入されたユーザーIDがレート制限のキーになることを検証する。
func TestMiddlewareChain_RateLimitUsesSessionUser(t *testing.T) {
	resolver := &mockSessionResolver{
		currentUserIDFn: func(_ context.Context, id string) (int64, bool, error) {
			if id == "alice" {
				return 1, true, nil
			}
			return 2, true, nil
		},
	}

	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     1,
		GeneralBurst:    1,
		AuthRate:        1,
		AuthBurst:       1,
		CleanupInterval: time.Minute,
	})
	defer rl.Stop()

	handler := NewSessionMiddleware(resolver)(rl.GeneralMiddleware()(okHandler()))

	send := func(cookie string) int {
		req := httptest.NewRequest(http.MethodGet, "/recipes", nil)
		req.RemoteAddr = "192.0.2.10:1000"
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookie})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	if code := send("alice"); code != http.StatusOK {
		t.Errorf("alice first = %d, want 200", code)
	}
	if code := send("bob"); code != http.StatusOK {
		t.Errorf("bob first = %d, want 200", code)
	}
	if code := send("alice"); code != http.StatusTooManyRequests {
		t.Errorf("alice second = %d, want 429", code)
	}
}

// TestMiddlewareChain_RecoveryReturnsJSON はpanicが500のJSONエラーに変換されることを検証する。
func TestMiddlewareChain_RecoveryReturnsJSON(t *testing.T) {
	handler := NewRequestIDMiddleware()(
		NewRecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		})),
	)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recipes", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Errors["message"] == "" {
		t.Error("errors.message should be set")
	}
}
