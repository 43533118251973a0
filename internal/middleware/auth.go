// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/eventman/internal/auth"
	"github.com/hitoshi/eventman/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// actorContextKey はリクエストコンテキストに認証済みアクターを格納するためのキー。
	actorContextKey = contextKey("actor")
	// tokenContextKey はリクエストコンテキストに生トークンを格納するためのキー。
	// ログアウト処理でブラックリスト登録に使用する。
	tokenContextKey = contextKey("token")
)

// Blacklist はログアウト済みトークンの確認に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type Blacklist interface {
	IsBlacklisted(ctx context.Context, tokenString string) (bool, error)
}

// NewAuthMiddleware はAuthorizationヘッダのBearerトークンを検証し、
// アクター（ユーザーID＋ロール）をリクエストコンテキストに注入するミドルウェアを返す。
// トークンが無い・無効・ログアウト済みのリクエストには401を返す。
func NewAuthMiddleware(jwtSecret string, blacklist Blacklist) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, token, ok := resolveActor(w, r, jwtSecret, blacklist)
			if !ok {
				return
			}
			if actor == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			ctx := ContextWithActor(r.Context(), actor)
			ctx = ContextWithToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewOptionalAuthMiddleware はトークンがあれば検証してアクターを注入し、
// 無ければ匿名のままリクエストを通すミドルウェアを返す。
// PUBLICイベントの閲覧など、匿名アクセスを許可するルートで使用する。
// 提示されたトークンが無効な場合は匿名扱いではなく401を返す。
func NewOptionalAuthMiddleware(jwtSecret string, blacklist Blacklist) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			actor, token, ok := resolveActor(w, r, jwtSecret, blacklist)
			if !ok {
				return
			}
			if actor == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			ctx := ContextWithActor(r.Context(), actor)
			ctx = ContextWithToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewAdminMiddleware は管理者ロールを要求するミドルウェアを返す。
// NewAuthMiddlewareの後に配置すること。
func NewAdminMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := ActorFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}
			if !actor.IsAdmin() {
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError("管理者のみ実行できます"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolveActor はリクエストからBearerトークンを取り出して検証する。
// 戻り値のokがfalseの場合はレスポンス書き込み済み。
// トークンが存在しない場合は (nil, "", true) を返す。
func resolveActor(w http.ResponseWriter, r *http.Request, jwtSecret string, blacklist Blacklist) (*model.Actor, string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, "", true
	}

	token, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found || token == "" {
		WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return nil, "", false
	}

	claims, err := auth.ValidateToken(token, jwtSecret)
	if err != nil {
		WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return nil, "", false
	}

	if blacklist != nil {
		revoked, err := blacklist.IsBlacklisted(r.Context(), token)
		if err != nil {
			slog.Error("failed to check token blacklist", slog.String("error", err.Error()))
			WriteInternalServerError(w)
			return nil, "", false
		}
		if revoked {
			WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
			return nil, "", false
		}
	}

	return &model.Actor{ID: claims.UserID, Role: claims.Role}, token, true
}

// ActorFromContext はリクエストコンテキストからアクターを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func ActorFromContext(ctx context.Context) (*model.Actor, error) {
	actor, ok := ctx.Value(actorContextKey).(*model.Actor)
	if !ok || actor == nil {
		return nil, fmt.Errorf("actor not found in context")
	}
	return actor, nil
}

// OptionalActorFromContext はコンテキストからアクターを取得する。
// 匿名リクエストの場合はnilを返す。
func OptionalActorFromContext(ctx context.Context) *model.Actor {
	actor, _ := ctx.Value(actorContextKey).(*model.Actor)
	return actor
}

// TokenFromContext はコンテキストから生のアクセストークンを取得する。
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// ContextWithActor はコンテキストにアクターを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithActor(ctx context.Context, actor *model.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// ContextWithToken はコンテキストに生のアクセストークンを注入する。
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}
