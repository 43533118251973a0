package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/eventman/internal/auth"
	"github.com/hitoshi/eventman/internal/model"
)

// 登録成功で201とトークンが返ることを検証
func TestAuthHandlerRegister(t *testing.T) {
	service := &mockAuthService{
		registerFunc: func(ctx context.Context, name, email, password string) (*auth.Result, error) {
			return &auth.Result{
				Token: "issued-token",
				User:  &model.User{ID: "user-1", Name: name, Email: email, PasswordHash: "secret-hash", Role: model.RoleUser},
			}, nil
		},
	}
	h := NewAuthHandler(service)

	body := `{"name":"田中","email":"tanaka@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assertStatus(t, rec, http.StatusCreated)

	var resp struct {
		Token string         `json:"token"`
		User  map[string]any `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}
	if resp.Token != "issued-token" {
		t.Errorf("token = %q", resp.Token)
	}
	if _, ok := resp.User["password_hash"]; ok {
		t.Error("レスポンスにパスワードハッシュが含まれている")
	}
}

// 登録の入力検証を検証
func TestAuthHandlerRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"不正なJSON", `{not json`},
		{"nameなし", `{"email":"a@example.com","password":"pw"}`},
		{"emailなし", `{"name":"田中","password":"pw"}`},
		{"passwordなし", `{"name":"田中","email":"a@example.com"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&mockAuthService{})

			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Register(rec, req)

			assertStatus(t, rec, http.StatusBadRequest)
			if body := decodeErrorResponse(t, rec); body.Code != model.ErrCodeInvalidRequest {
				t.Errorf("エラーコード = %q, want INVALID_REQUEST", body.Code)
			}
		})
	}
}

// 登録済みメールアドレスが400 EMAIL_TAKENになることを検証
func TestAuthHandlerRegisterEmailTaken(t *testing.T) {
	service := &mockAuthService{
		registerFunc: func(ctx context.Context, name, email, password string) (*auth.Result, error) {
			return nil, model.NewEmailTakenError()
		},
	}
	h := NewAuthHandler(service)

	body := `{"name":"田中","email":"taken@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assertStatus(t, rec, http.StatusBadRequest)
	if body := decodeErrorResponse(t, rec); body.Code != model.ErrCodeEmailTaken {
		t.Errorf("エラーコード = %q, want EMAIL_TAKEN", body.Code)
	}
}

// ログイン成功で200が返ることを検証
func TestAuthHandlerLogin(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	body := `{"email":"tanaka@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assertStatus(t, rec, http.StatusOK)
}

// 認証失敗が401 INVALID_CREDENTIALSになることを検証
func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	service := &mockAuthService{
		loginFunc: func(ctx context.Context, email, password string) (*auth.Result, error) {
			return nil, model.NewInvalidCredentialsError()
		},
	}
	h := NewAuthHandler(service)

	body := `{"email":"tanaka@example.com","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assertStatus(t, rec, http.StatusUnauthorized)
	if body := decodeErrorResponse(t, rec); body.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("エラーコード = %q, want INVALID_CREDENTIALS", body.Code)
	}
}

// ログアウトがコンテキストのトークンをサービスに渡し204を返すことを検証
func TestAuthHandlerLogout(t *testing.T) {
	var loggedOut string
	service := &mockAuthService{
		logoutFunc: func(ctx context.Context, tokenString string) error {
			loggedOut = tokenString
			return nil
		},
	}
	h := NewAuthHandler(service)

	req := newAuthenticatedRequest(t, http.MethodPost, "/api/auth/logout", "")
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assertStatus(t, rec, http.StatusNoContent)
	if loggedOut == "" {
		t.Error("サービスにトークンが渡されていない")
	}
}

// トークンなしのログアウトは401になることを検証
func TestAuthHandlerLogoutWithoutToken(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assertStatus(t, rec, http.StatusUnauthorized)
}
