package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eventman/internal/middleware"
	"github.com/hitoshi/eventman/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// GetByID は指定IDのユーザーを取得する。本人または管理者のみ。
	GetByID(ctx context.Context, userID string, actor *model.Actor) (*model.User, error)
	// List は全ユーザーの一覧を返す。管理者専用。
	List(ctx context.Context, actor *model.Actor, includeDeleted bool) ([]*model.User, error)
	// Deactivate はユーザーを無効化する（論理削除）。管理者専用。
	Deactivate(ctx context.Context, userID string, actor *model.Actor) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// Me はアクター自身のユーザー情報を取得する。
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, err := middleware.ActorFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	user, err := h.service.GetByID(r.Context(), actor.ID, actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Get は指定IDのユーザー情報を取得する。本人または管理者のみ。
// GET /api/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := middleware.OptionalActorFromContext(r.Context())
	userID := chi.URLParam(r, "id")

	user, err := h.service.GetByID(r.Context(), userID, actor)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// List は全ユーザーの一覧を取得する。管理者専用。
// include_deleted=true で論理削除済みユーザーも含める。
// GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.OptionalActorFromContext(r.Context())
	includeDeleted := r.URL.Query().Get("include_deleted") == "true"

	users, err := h.service.List(r.Context(), actor, includeDeleted)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]userResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, toUserResponse(user))
	}

	writeJSON(w, http.StatusOK, responses)
}

// Deactivate はユーザーの無効化（論理削除）を処理する。管理者専用。
// DELETE /api/users/{id}
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	actor := middleware.OptionalActorFromContext(r.Context())
	userID := chi.URLParam(r, "id")

	if err := h.service.Deactivate(r.Context(), userID, actor); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
