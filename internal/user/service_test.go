package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/eventman/internal/model"
)

// mockUserRepo はテスト用のUserRepository実装。
type mockUserRepo struct {
	findByIDFunc     func(ctx context.Context, id string, scope model.ReadScope) (*model.User, error)
	listFunc         func(ctx context.Context, scope model.ReadScope) ([]*model.User, error)
	setDeletedAtFunc func(ctx context.Context, id string, deletedAt time.Time) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string, scope model.ReadScope) (*model.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id, scope)
	}
	return &model.User{ID: id, Role: model.RoleUser}, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string, scope model.ReadScope) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }

func (m *mockUserRepo) List(ctx context.Context, scope model.ReadScope) ([]*model.User, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, scope)
	}
	return nil, nil
}

func (m *mockUserRepo) SetDeletedAt(ctx context.Context, id string, deletedAt time.Time) error {
	if m.setDeletedAtFunc != nil {
		return m.setDeletedAtFunc(ctx, id, deletedAt)
	}
	return nil
}

var (
	admin   = &model.Actor{ID: "user-admin", Role: model.RoleAdmin}
	regular = &model.Actor{ID: "user-1", Role: model.RoleUser}
	testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
)

// 本人と管理者のみユーザーを取得できることを検証
func TestGetByID(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		actor    *model.Actor
		wantCode string
	}{
		{"本人は自分を取得できる", "user-1", regular, ""},
		{"管理者は他人を取得できる", "user-1", admin, ""},
		{"第三者は取得できない", "user-2", regular, model.ErrCodeForbidden},
		{"匿名は取得できない", "user-1", nil, model.ErrCodeUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewService(&mockUserRepo{})

			user, err := service.GetByID(context.Background(), tt.userID, tt.actor)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("GetByID() error = %v", err)
				}
				if user.ID != tt.userID {
					t.Errorf("UserID = %q, want %q", user.ID, tt.userID)
				}
				return
			}
			assertAPIErrorCode(t, err, tt.wantCode)
		})
	}
}

// 削除済みユーザーの取得はUSER_NOT_FOUNDになることを検証
func TestGetByIDDeleted(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string, scope model.ReadScope) (*model.User, error) {
			// ScopeActiveでは削除済みユーザーは見つからない
			return nil, nil
		},
	}
	service := NewService(userRepo)

	_, err := service.GetByID(context.Background(), "user-1", admin)
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

// 一覧が管理者専用であることと、include_deletedのスコープ切り替えを検証
func TestList(t *testing.T) {
	var gotScope model.ReadScope
	userRepo := &mockUserRepo{
		listFunc: func(ctx context.Context, scope model.ReadScope) ([]*model.User, error) {
			gotScope = scope
			return []*model.User{{ID: "user-1"}}, nil
		},
	}
	service := NewService(userRepo)

	// 管理者は取得できる（デフォルトはScopeActive）
	users, err := service.List(context.Background(), admin, false)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 1 {
		t.Errorf("ユーザー数 = %d, want 1", len(users))
	}
	if gotScope != model.ScopeActive {
		t.Errorf("スコープ = %v, want ScopeActive", gotScope)
	}

	// includeDeletedでScopeAllに切り替わる
	if _, err := service.List(context.Background(), admin, true); err != nil {
		t.Fatalf("List(includeDeleted) error = %v", err)
	}
	if gotScope != model.ScopeAll {
		t.Errorf("スコープ = %v, want ScopeAll", gotScope)
	}

	// 一般ユーザーは403
	_, err = service.List(context.Background(), regular, false)
	assertAPIErrorCode(t, err, model.ErrCodeForbidden)

	// 匿名は401
	_, err = service.List(context.Background(), nil, false)
	assertAPIErrorCode(t, err, model.ErrCodeUnauthenticated)
}

// 無効化が論理削除であり管理者専用であることを検証
func TestDeactivate(t *testing.T) {
	var deletedID string
	userRepo := &mockUserRepo{
		setDeletedAtFunc: func(ctx context.Context, id string, deletedAt time.Time) error {
			deletedID = id
			return nil
		},
	}
	service := NewService(userRepo)
	service.now = func() time.Time { return testNow }

	if err := service.Deactivate(context.Background(), "user-1", admin); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if deletedID != "user-1" {
		t.Errorf("無効化対象 = %q, want user-1", deletedID)
	}

	// 一般ユーザーは自分自身も無効化できない
	err := service.Deactivate(context.Background(), "user-1", regular)
	assertAPIErrorCode(t, err, model.ErrCodeForbidden)
}

// 存在しないユーザーの無効化はUSER_NOT_FOUNDになることを検証
func TestDeactivateNotFound(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFunc: func(ctx context.Context, id string, scope model.ReadScope) (*model.User, error) {
			return nil, nil
		},
	}
	service := NewService(userRepo)

	err := service.Deactivate(context.Background(), "no-such-user", admin)
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

// assertAPIErrorCode はエラーが指定コードのAPIErrorであることを検証する。
func assertAPIErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	if err == nil {
		t.Fatalf("エラーが返っていない（want %s）", wantCode)
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIErrorではないエラーが返った: %v", err)
	}
	if apiErr.Code != wantCode {
		t.Errorf("エラーコード = %q, want %q", apiErr.Code, wantCode)
	}
}
