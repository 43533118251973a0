package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/eventman/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	JWTSecret         string
	Blacklist         middleware.Blacklist
	Logger            *slog.Logger
	StatusRecorder    middleware.StatusRecorder // nil可
	MetricsHandler    http.Handler              // nil可。/metricsエンドポイント

	// サービス
	AuthService       AuthServiceInterface
	EventService      EventServiceInterface
	AttendanceService AttendanceServiceInterface
	UserService       UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → CORS
//
// その内側で3種類のルートグループに分かれる:
//   - 認証エンドポイント（登録・ログイン）: 認証専用レート制限のみ
//   - 公開リード（イベント一覧・詳細）: 任意認証（匿名許可、無効トークンは401）
//   - 保護ルート: 必須認証 → 一般レート制限、管理者ルートはさらに管理者検査
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService)
	eventHandler := NewEventHandler(deps.EventService)
	attendanceHandler := NewAttendanceHandler(deps.AttendanceService)
	userHandler := NewUserHandler(deps.UserService)

	requireAuth := middleware.NewAuthMiddleware(deps.JWTSecret, deps.Blacklist)
	optionalAuth := middleware.NewOptionalAuthMiddleware(deps.JWTSecret, deps.Blacklist)
	requireAdmin := middleware.NewAdminMiddleware()

	// --- 運用エンドポイント ---

	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- 認証エンドポイント ---
	// 未認証リクエストが対象のため、IPキーの専用レート制限を適用する。
	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.AuthMiddleware())
		}
		r.Post("/api/auth/register", authHandler.Register)
		r.Post("/api/auth/login", authHandler.Login)
	})

	// ログアウトはトークンの提示が必要
	r.With(requireAuth).Post("/api/auth/logout", authHandler.Logout)

	// --- 公開リード（匿名許可、トークンがあれば検証） ---
	r.Group(func(r chi.Router) {
		r.Use(optionalAuth)
		r.Get("/api/events", eventHandler.List)
		r.Get("/api/events/upcoming", eventHandler.ListUpcoming)
		r.Get("/api/events/{id}", eventHandler.GetDetails)
	})

	// --- 保護ルート ---
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		// イベント管理
		r.Post("/api/events", eventHandler.Create)
		r.Get("/api/events/my-events", eventHandler.ListMyEvents)
		r.Get("/api/events/attending", eventHandler.ListAttending)
		r.Put("/api/events/{id}", eventHandler.Update)
		r.Delete("/api/events/{id}", eventHandler.Delete)

		// 出欠回答
		r.Post("/api/events/{id}/attendance", attendanceHandler.Set)
		r.Delete("/api/events/{id}/attendance", attendanceHandler.Withdraw)
		r.Get("/api/events/{id}/attendance-status", attendanceHandler.GetStatus)

		// ユーザー
		r.Get("/api/users/me", userHandler.Me)
		r.Get("/api/users/{id}", userHandler.Get)

		// 管理者専用
		r.With(requireAdmin).Get("/api/users", userHandler.List)
		r.With(requireAdmin).Delete("/api/users/{id}", userHandler.Deactivate)
	})

	return r
}

// healthHandler はDB接続を確認してヘルス状態を返すハンドラーを生成する。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	}
}
