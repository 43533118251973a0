package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/eventman/internal/auth"
	"github.com/hitoshi/eventman/internal/middleware"
	"github.com/hitoshi/eventman/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register は新規ユーザーを登録し、発行済みトークンと共に返す。
	Register(ctx context.Context, name, email, password string) (*auth.Result, error)
	// Login はメールアドレスとパスワードで認証し、トークンを発行する。
	Login(ctx context.Context, email, password string) (*auth.Result, error)
	// Logout はトークンを残存有効期間だけブラックリストに登録する。
	Logout(ctx context.Context, tokenString string) error
}

// AuthHandler はユーザー登録・ログイン・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse は登録・ログイン成功時のレスポンス。
type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// Register はユーザー登録を処理する。登録成功時は自動ログインとしてトークンを返す。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("name、email、passwordは必須です"))
		return
	}

	result, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Token: result.Token,
		User:  toUserResponse(result.User),
	})
}

// Login はログインを処理する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBodyResponse(w)
		return
	}

	if req.Email == "" || req.Password == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("emailとpasswordは必須です"))
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token: result.Token,
		User:  toUserResponse(result.User),
	})
}

// Logout は現在のトークンを無効化する。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromContext(r.Context())
	if token == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	if err := h.service.Logout(r.Context(), token); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
