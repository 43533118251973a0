package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/eventman/internal/attendance"
	"github.com/hitoshi/eventman/internal/auth"
	"github.com/hitoshi/eventman/internal/cache"
	"github.com/hitoshi/eventman/internal/config"
	"github.com/hitoshi/eventman/internal/database"
	"github.com/hitoshi/eventman/internal/event"
	"github.com/hitoshi/eventman/internal/handler"
	"github.com/hitoshi/eventman/internal/logger"
	"github.com/hitoshi/eventman/internal/metrics"
	"github.com/hitoshi/eventman/internal/middleware"
	"github.com/hitoshi/eventman/internal/repository"
	"github.com/hitoshi/eventman/internal/user"
	"github.com/hitoshi/eventman/internal/worker/reminder"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// newCache はRedisURLが設定されていればRedisキャッシュを、
// そうでなければインメモリキャッシュを生成する。
func newCache(cfg *config.Config) (cache.Cache, func(), error) {
	if cfg.RedisURL == "" {
		slog.Info("using in-memory cache",
			slog.Int("max_entries", cfg.CacheMaxEntries),
		)
		return cache.NewMemoryCache(cfg.CacheMaxEntries), func() {}, nil
	}

	redisCache, err := cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("using redis cache")
	return redisCache, func() { redisCache.Close() }, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. キャッシュの初期化（REDIS_URLの有無でバックエンドを切り替える）
	appCache, closeCache, err := newCache(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	eventRepo := repository.NewPostgresEventRepo(db)
	attendanceRepo := repository.NewPostgresAttendanceRepo(db)

	// 5. ドメインサービスの初期化
	authService := auth.NewService(userRepo, appCache, auth.ServiceConfig{
		JWTSecret:   cfg.JWTSecret,
		TokenExpiry: cfg.TokenExpiry,
	})
	eventService := event.NewService(eventRepo, attendanceRepo, userRepo, appCache, collector, cfg.CacheTTL)
	attendanceService := attendance.NewService(eventRepo, attendanceRepo, appCache, collector)
	userService := user.NewService(userRepo)

	// 6. レート制限の設定（configはreq/min単位、rate.Limitはreq/sec単位）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rateLimitPerSecond(cfg.RateLimitGeneral)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.AuthRate = rateLimitPerSecond(cfg.RateLimitAuth)
	rateLimiterCfg.AuthBurst = cfg.RateLimitAuth
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	// 7. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		HealthChecker:     db,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		JWTSecret:         cfg.JWTSecret,
		Blacklist:         authService,
		Logger:            slog.Default(),
		StatusRecorder:    collector,
		MetricsHandler:    metrics.Handler(registry),

		AuthService:       authService,
		EventService:      eventService,
		AttendanceService: attendanceService,
		UserService:       userService,
	})

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、リマインダージョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. メトリクスとリポジトリの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	eventRepo := repository.NewPostgresEventRepo(db)

	// 3. リマインダージョブの初期化
	job := reminder.NewJob(eventRepo, slog.Default(), collector, cfg.ReminderWindow)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("reminder_interval", cfg.ReminderInterval),
		slog.Duration("reminder_window", cfg.ReminderWindow),
	)

	// リマインダージョブをメインgoroutineで実行（ブロッキング）
	job.Start(ctx, cfg.ReminderInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// rateLimitPerSecond はreq/min単位の設定値をrate.Limit（req/sec）に変換する。
func rateLimitPerSecond(perMinute int) rate.Limit {
	return rate.Limit(float64(perMinute) / 60.0)
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
