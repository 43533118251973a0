package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/eventman/internal/model"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func strictConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(1),
		GeneralBurst:    2,
		AuthRate:        rate.Limit(1),
		AuthBurst:       1,
		CleanupInterval: time.Hour,
	}
}

// バースト超過で429とRetry-Afterが返ることを検証
func TestGeneralMiddlewareLimitExceeded(t *testing.T) {
	rl := NewRateLimiter(strictConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())
	actor := &model.Actor{ID: "user-1", Role: model.RoleUser}

	// バースト分は通過できる
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(ContextWithActor(req.Context(), actor))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%d回目のstatus = %d, want 200", i+1, rec.Code)
		}
	}

	// バースト超過は429
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ContextWithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("超過時のstatus = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-Afterヘッダが設定されていない")
	}
}

// ユーザーごとに独立したリミッターが使われることを検証
func TestGeneralMiddlewarePerUser(t *testing.T) {
	rl := NewRateLimiter(strictConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	// user-1がバーストを使い切る
	actor1 := &model.Actor{ID: "user-1", Role: model.RoleUser}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(ContextWithActor(req.Context(), actor1))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	// user-2には影響しない
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ContextWithActor(req.Context(), &model.Actor{ID: "user-2", Role: model.RoleUser}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("別ユーザーのstatus = %d, want 200", rec.Code)
	}
	if rl.GeneralLimiterCount() != 2 {
		t.Errorf("リミッターエントリ数 = %d, want 2", rl.GeneralLimiterCount())
	}
}

// アクターなしのリクエストは401になることを検証
func TestGeneralMiddlewareNoActor(t *testing.T) {
	rl := NewRateLimiter(strictConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// 認証エンドポイントがクライアントIPキーで制限されることを検証
func TestAuthMiddlewarePerIP(t *testing.T) {
	rl := NewRateLimiter(strictConfig())
	defer rl.Stop()

	handler := rl.AuthMiddleware()(okHandler())

	// 同一IPの2回目は429（バースト1）
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "203.0.113.1:50000"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "203.0.113.1:50001"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("同一IPの2回目のstatus = %d, want 429", rec.Code)
	}

	// 別IPは通過できる
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "203.0.113.2:50000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("別IPのstatus = %d, want 200", rec.Code)
	}

	if rl.AuthLimiterCount() != 2 {
		t.Errorf("リミッターエントリ数 = %d, want 2", rl.AuthLimiterCount())
	}
}

// 期限切れエントリのクリーンアップを検証
func TestCleanup(t *testing.T) {
	config := strictConfig()
	config.CleanupInterval = 10 * time.Millisecond
	rl := NewRateLimiter(config)
	defer rl.Stop()

	rl.getOrCreateLimiter(&rl.generalMu, rl.generalLimiters, "user-1", config.GeneralRate, config.GeneralBurst)
	if rl.GeneralLimiterCount() != 1 {
		t.Fatalf("エントリ数 = %d, want 1", rl.GeneralLimiterCount())
	}

	// TTL（CleanupIntervalの2倍）を超えるまで待つ
	deadline := time.Now().Add(time.Second)
	for rl.GeneralLimiterCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if rl.GeneralLimiterCount() != 0 {
		t.Error("期限切れエントリがクリーンアップされていない")
	}
}

// デフォルト設定値を検証
func TestDefaultRateLimiterConfig(t *testing.T) {
	config := DefaultRateLimiterConfig()
	if config.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", config.GeneralBurst)
	}
	if config.AuthBurst != 10 {
		t.Errorf("AuthBurst = %d, want 10", config.AuthBurst)
	}
}
