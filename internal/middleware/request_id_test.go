package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

// TestRequestIDMiddleware_GeneratesID はIDなしのリクエストに
// UUIDが割り当てられることをテストする。
func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	var gotFromContext string
	handler := NewRequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFromContext = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	headerID := rec.Header().Get(RequestIDHeader)
	if headerID == "" {
		t.Fatal("X-Request-IDヘッダーが設定されていない")
	}
	if _, err := uuid.Parse(headerID); err != nil {
		t.Errorf("X-Request-ID = %q, UUIDではない", headerID)
	}
	if gotFromContext != headerID {
		t.Errorf("コンテキストのID %q とヘッダーのID %q が一致しない", gotFromContext, headerID)
	}
}

// TestRequestIDMiddleware_PreservesIncomingID はクライアント指定のIDが
// 引き継がれることをテストする。
func TestRequestIDMiddleware_PreservesIncomingID(t *testing.T) {
	handler := NewRequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-supplied-id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != "client-supplied-id" {
		t.Errorf("X-Request-ID = %q, want client-supplied-id", got)
	}
}

// TestRequestIDFromContext_Unset は未設定のコンテキストで空文字列が返ることをテストする。
func TestRequestIDFromContext_Unset(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := RequestIDFromContext(req.Context()); got != "" {
		t.Errorf("RequestIDFromContext() = %q, want 空文字列", got)
	}
}
