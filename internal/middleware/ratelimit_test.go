package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestRateLimiter(generalBurst, summarizeBurst int) *RateLimiter {
	return NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001), // テスト中に補充されない
		GeneralBurst:    generalBurst,
		SummarizeRate:   rate.Limit(0.001),
		SummarizeBurst:  summarizeBurst,
		CleanupInterval: time.Hour,
	})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// TestRateLimiter_General_BlocksAfterBurst はバースト超過後に429が返ることをテストする。
func TestRateLimiter_General_BlocksAfterBurst(t *testing.T) {
	rl := newTestRateLimiter(3, 1)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/feedback", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("%d回目: status = %d, want 200", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/feedback", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-Afterヘッダーがない")
	}

	// 429レスポンスも統一エラーフォーマットであること
	var body ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスボディの解析に失敗: %v", err)
	}
	if body.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("code = %q, want %q", body.Code, "RATE_LIMIT_EXCEEDED")
	}
	if body.Category != "system" {
		t.Errorf("category = %q, want %q", body.Category, "system")
	}
}

// TestRateLimiter_SeparateIPsIndependent は別IPのクライアントが
// 互いのレート制限に影響しないことをテストする。
func TestRateLimiter_SeparateIPsIndependent(t *testing.T) {
	rl := newTestRateLimiter(1, 1)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	// 1つ目のIPはバーストを使い切る
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:111"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:111"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("1つ目のIP: status = %d, want 429", rec.Code)
	}

	// 2つ目のIPは影響を受けない
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:222"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("2つ目のIP: status = %d, want 200", rec.Code)
	}

	if rl.GeneralLimiterCount() != 2 {
		t.Errorf("GeneralLimiterCount() = %d, want 2", rl.GeneralLimiterCount())
	}
}

// TestRateLimiter_SummarizeIndependentOfGeneral は要約リミッターが
// API全般リミッターと独立であることをテストする。
func TestRateLimiter_SummarizeIndependentOfGeneral(t *testing.T) {
	rl := newTestRateLimiter(1, 2)
	defer rl.Stop()

	general := rl.GeneralMiddleware()(okHandler())
	summarize := rl.SummarizeMiddleware()(okHandler())

	// API全般のバーストを使い切る
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:111"
	general.ServeHTTP(httptest.NewRecorder(), req)

	// 要約側はまだ許可される
	req = httptest.NewRequest(http.MethodPost, "/api/feedback/summarize", nil)
	req.RemoteAddr = "10.0.0.1:111"
	rec := httptest.NewRecorder()
	summarize.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("summarize: status = %d, want 200", rec.Code)
	}
}

// TestExtractClientIP はクライアントIPの抽出規則をテストする。
func TestExtractClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"RemoteAddrから抽出", "192.168.1.5:54321", "", "192.168.1.5"},
		{"X-Forwarded-Forを優先", "10.0.0.1:1234", "203.0.113.7", "203.0.113.7"},
		{"X-Forwarded-Forの先頭エントリ", "10.0.0.1:1234", "203.0.113.7, 10.0.0.2", "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			if got := extractClientIP(req); got != tt.want {
				t.Errorf("extractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestRateLimiter_Cleanup は期限切れエントリが削除されることをテストする。
func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(1),
		GeneralBurst:    1,
		SummarizeRate:   rate.Limit(1),
		SummarizeBurst:  1,
		CleanupInterval: 10 * time.Millisecond,
	})
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:111"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if rl.GeneralLimiterCount() != 1 {
		t.Fatalf("GeneralLimiterCount() = %d, want 1", rl.GeneralLimiterCount())
	}

	// TTL（CleanupInterval * 2）経過後のクリーンアップを待つ
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if rl.GeneralLimiterCount() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("期限切れエントリが削除されなかった")
}
