// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/eventman/internal/authz"
	"github.com/hitoshi/eventman/internal/model"
	"github.com/hitoshi/eventman/internal/repository"
)

// Service はユーザー管理のサービス層。
// 取得・一覧・無効化（論理削除）を提供する。一覧と無効化は管理者専用。
type Service struct {
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewService はuser.Serviceを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{
		userRepo: userRepo,
		now:      time.Now,
	}
}

// GetByID は指定IDのユーザーを取得する。
// 本人または管理者のみ取得可能。論理削除済みユーザーは見つからない扱い。
func (s *Service) GetByID(ctx context.Context, userID string, actor *model.Actor) (*model.User, error) {
	if actor == nil {
		return nil, model.NewUnauthenticatedError()
	}
	if actor.ID != userID && !authz.CanManageUsers(actor) {
		return nil, model.NewForbiddenError("他のユーザーの情報は取得できません")
	}

	user, err := s.userRepo.FindByID(ctx, userID, model.ScopeActive)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError(userID)
	}
	return user, nil
}

// List は全ユーザーの一覧を返す。管理者専用。
// includeDeletedを指定すると論理削除済みユーザーも含める。
func (s *Service) List(ctx context.Context, actor *model.Actor, includeDeleted bool) ([]*model.User, error) {
	if actor == nil {
		return nil, model.NewUnauthenticatedError()
	}
	if !authz.CanManageUsers(actor) {
		return nil, model.NewForbiddenError("ユーザー一覧の取得は管理者のみ可能です")
	}

	scope := model.ScopeActive
	if includeDeleted {
		scope = model.ScopeAll
	}

	users, err := s.userRepo.List(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// Deactivate はユーザーを無効化する（論理削除）。管理者専用。
// 物理削除は行わず、ホスト中のイベントや出欠回答には波及しない。
func (s *Service) Deactivate(ctx context.Context, userID string, actor *model.Actor) error {
	if actor == nil {
		return model.NewUnauthenticatedError()
	}
	if !authz.CanManageUsers(actor) {
		return model.NewForbiddenError("ユーザーの無効化は管理者のみ可能です")
	}

	user, err := s.userRepo.FindByID(ctx, userID, model.ScopeActive)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError(userID)
	}

	if err := s.userRepo.SetDeletedAt(ctx, userID, s.now()); err != nil {
		return fmt.Errorf("ユーザーの無効化に失敗しました: %w", err)
	}
	return nil
}
