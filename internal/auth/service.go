package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/eventman/internal/cache"
	"github.com/hitoshi/eventman/internal/model"
	"github.com/hitoshi/eventman/internal/repository"
)

// BlacklistNamespace はログアウト済みトークンを保持するキャッシュ名前空間。
const BlacklistNamespace = "token_blacklist"

// Result は登録・ログイン成功時の結果を表す。
type Result struct {
	Token string
	User  *model.User
}

// ServiceConfig はauth.Serviceの設定。
type ServiceConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
}

// Service はユーザー登録・ログイン・ログアウトのサービス層。
// パスワードはArgon2idでハッシュ化し、認証成功時にJWTを発行する。
// ログアウトはトークンを残存有効期間だけブラックリストに載せることで実現する。
type Service struct {
	userRepo repository.UserRepository
	cache    cache.Cache
	config   ServiceConfig
	now      func() time.Time
}

// NewService はauth.Serviceを生成する。
func NewService(userRepo repository.UserRepository, c cache.Cache, config ServiceConfig) *Service {
	return &Service{
		userRepo: userRepo,
		cache:    c,
		config:   config,
		now:      time.Now,
	}
}

// Register は新規ユーザーを登録し、発行済みトークンと共に返す（登録後自動ログイン）。
// メールアドレスが登録済みの場合はEMAIL_TAKENを返す。
// 事前チェックをすり抜けた同時登録はDBの一意制約違反として検出する。
func (s *Service) Register(ctx context.Context, name, email, password string) (*Result, error) {
	existing, err := s.userRepo.FindByEmail(ctx, email, model.ScopeAll)
	if err != nil {
		return nil, fmt.Errorf("メールアドレスの確認に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, model.NewEmailTakenError()
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	token, err := GenerateToken(user, s.config.JWTSecret, s.config.TokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	return &Result{Token: token, User: user}, nil
}

// Login はメールアドレスとパスワードで認証し、トークンを発行する。
// 未登録・退会済み・パスワード不一致はすべてINVALID_CREDENTIALSとして区別しない。
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	user, err := s.userRepo.FindByEmail(ctx, email, model.ScopeActive)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	match, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("パスワードの検証に失敗しました: %w", err)
	}
	if !match {
		return nil, model.NewInvalidCredentialsError()
	}

	token, err := GenerateToken(user, s.config.JWTSecret, s.config.TokenExpiry)
	if err != nil {
		return nil, fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	return &Result{Token: token, User: user}, nil
}

// Logout はトークンを残存有効期間だけブラックリストに登録する。
// 期限切れトークンは登録不要のため何もしない。
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	claims, err := ValidateToken(tokenString, s.config.JWTSecret)
	if err != nil {
		// 無効なトークンのログアウトは成功扱い（既に使用不能）
		return nil
	}

	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	if err := s.cache.Set(ctx, BlacklistNamespace, tokenString, []byte("1"), ttl); err != nil {
		return fmt.Errorf("トークンのブラックリスト登録に失敗しました: %w", err)
	}
	return nil
}

// IsBlacklisted はトークンがログアウト済みかどうかを返す。
func (s *Service) IsBlacklisted(ctx context.Context, tokenString string) (bool, error) {
	_, ok, err := s.cache.Get(ctx, BlacklistNamespace, tokenString)
	if err != nil {
		return false, fmt.Errorf("ブラックリストの確認に失敗しました: %w", err)
	}
	return ok, nil
}
