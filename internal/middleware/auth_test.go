package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/eventman/internal/auth"
	"github.com/hitoshi/eventman/internal/model"
)

const testSecret = "test-secret-key"

// mockBlacklist はテスト用のBlacklist実装。
type mockBlacklist struct {
	isBlacklistedFunc func(ctx context.Context, tokenString string) (bool, error)
}

func (m *mockBlacklist) IsBlacklisted(ctx context.Context, tokenString string) (bool, error) {
	if m.isBlacklistedFunc != nil {
		return m.isBlacklistedFunc(ctx, tokenString)
	}
	return false, nil
}

func issueToken(t *testing.T, role model.Role) string {
	t.Helper()
	token, err := auth.GenerateToken(&model.User{ID: "user-1", Role: role}, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	return token
}

// actorEchoHandler はコンテキストのアクターIDを返すテスト用ハンドラー。
func actorEchoHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := OptionalActorFromContext(r.Context())
		if actor == nil {
			w.Write([]byte("anonymous"))
			return
		}
		w.Write([]byte(actor.ID))
	})
}

// 有効なトークンでアクターが注入されることを検証
func TestAuthMiddleware(t *testing.T) {
	handler := NewAuthMiddleware(testSecret, &mockBlacklist{})(actorEchoHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, model.RoleUser))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "user-1" {
		t.Errorf("アクターID = %q, want user-1", rec.Body.String())
	}
}

// 必須認証で無効なリクエストが401になることを検証
func TestAuthMiddlewareRejects(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		blacklist Blacklist
	}{
		{"ヘッダなし", "", &mockBlacklist{}},
		{"Bearerプレフィックスなし", mustToken(model.RoleUser), &mockBlacklist{}},
		{"不正なトークン", "Bearer not-a-jwt", &mockBlacklist{}},
		{
			"ログアウト済みトークン",
			"Bearer " + mustToken(model.RoleUser),
			&mockBlacklist{isBlacklistedFunc: func(ctx context.Context, tokenString string) (bool, error) {
				return true, nil
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAuthMiddleware(testSecret, tt.blacklist)(actorEchoHandler(t))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			var body ErrorResponseBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("レスポンスのデコードに失敗: %v", err)
			}
			if body.Code != model.ErrCodeUnauthenticated {
				t.Errorf("エラーコード = %q, want UNAUTHENTICATED", body.Code)
			}
		})
	}
}

// ブラックリスト確認の失敗が500になることを検証（フェイルクローズ）
func TestAuthMiddlewareBlacklistError(t *testing.T) {
	blacklist := &mockBlacklist{
		isBlacklistedFunc: func(ctx context.Context, tokenString string) (bool, error) {
			return false, errors.New("redis connection refused")
		},
	}
	handler := NewAuthMiddleware(testSecret, blacklist)(actorEchoHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, model.RoleUser))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

// 任意認証がトークンなしを匿名として通すことを検証
func TestOptionalAuthMiddlewareAnonymous(t *testing.T) {
	handler := NewOptionalAuthMiddleware(testSecret, &mockBlacklist{})(actorEchoHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "anonymous" {
		t.Errorf("body = %q, want anonymous", rec.Body.String())
	}
}

// 任意認証でも無効なトークンは匿名扱いではなく401になることを検証
func TestOptionalAuthMiddlewareInvalidToken(t *testing.T) {
	handler := NewOptionalAuthMiddleware(testSecret, &mockBlacklist{})(actorEchoHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer expired-or-garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// 任意認証で有効なトークンのアクターが注入されることを検証
func TestOptionalAuthMiddlewareWithToken(t *testing.T) {
	handler := NewOptionalAuthMiddleware(testSecret, &mockBlacklist{})(actorEchoHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, model.RoleUser))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Body.String() != "user-1" {
		t.Errorf("アクターID = %q, want user-1", rec.Body.String())
	}
}

// 管理者検査ミドルウェアを検証
func TestAdminMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := NewAdminMiddleware()(next)

	// 管理者は通過できる
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ContextWithActor(req.Context(), &model.Actor{ID: "user-admin", Role: model.RoleAdmin}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("管理者のstatus = %d, want 200", rec.Code)
	}

	// 一般ユーザーは403
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ContextWithActor(req.Context(), &model.Actor{ID: "user-1", Role: model.RoleUser}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("一般ユーザーのstatus = %d, want 403", rec.Code)
	}

	// アクターなしは401
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("アクターなしのstatus = %d, want 401", rec.Code)
	}
}

// TokenFromContextが認証ミドルウェア通過後に生トークンを返すことを検証
func TestTokenFromContext(t *testing.T) {
	token := issueToken(t, model.RoleUser)
	var gotToken string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = TokenFromContext(r.Context())
	})
	handler := NewAuthMiddleware(testSecret, &mockBlacklist{})(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if gotToken != token {
		t.Error("コンテキストから生トークンを取得できない")
	}
}

// mustToken はテーブル初期化用のトークン生成ヘルパー。
func mustToken(role model.Role) string {
	token, err := auth.GenerateToken(&model.User{ID: "user-1", Role: role}, testSecret, time.Hour)
	if err != nil {
		panic(err)
	}
	return token
}
