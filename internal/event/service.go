// Package event はイベントライフサイクルのドメインロジックを提供する。
// 作成・更新・削除の検証と認可、詳細取得時の出欠集計、
// および変更時のキャッシュ一括破棄を担う。
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/eventman/internal/authz"
	"github.com/hitoshi/eventman/internal/cache"
	"github.com/hitoshi/eventman/internal/model"
	"github.com/hitoshi/eventman/internal/repository"
)

// CacheNamespace はイベント一覧・詳細のキャッシュ名前空間。
// イベントまたは出欠への変更時に名前空間全体を破棄する。
const CacheNamespace = "events"

// MetricsRecorder はイベントサービスが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordEventCreated()
	RecordCacheHit(namespace string)
	RecordCacheMiss(namespace string)
}

// CreateInput はイベント作成の入力を表す。
type CreateInput struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Location    string
	Visibility  model.Visibility // 未指定（空）の場合はPUBLIC
}

// UpdateInput はイベント部分更新の入力を表す。
// nilのフィールドは変更せず、既存の値を維持する。
type UpdateInput struct {
	Title       *string
	Description *string
	StartTime   *time.Time
	EndTime     *time.Time
	Location    *string
	Visibility  *model.Visibility
}

// Details はイベント詳細（出欠集計・参加者一覧付き）を表す。
type Details struct {
	Event               model.Event                      `json:"event"`
	AttendanceBreakdown map[model.AttendanceStatus]int64 `json:"attendance_breakdown"`
	AttendeeCount       int64                            `json:"attendee_count"`
	Attendees           []model.Attendee                 `json:"attendees"`
}

// Service はイベントライフサイクルのサービス層。
type Service struct {
	eventRepo      repository.EventRepository
	attendanceRepo repository.AttendanceRepository
	userRepo       repository.UserRepository
	cache          cache.Cache
	metrics        MetricsRecorder
	cacheTTL       time.Duration
	now            func() time.Time
}

// NewService はevent.Serviceを生成する。metricsはnil可。
func NewService(
	eventRepo repository.EventRepository,
	attendanceRepo repository.AttendanceRepository,
	userRepo repository.UserRepository,
	c cache.Cache,
	metrics MetricsRecorder,
	cacheTTL time.Duration,
) *Service {
	return &Service{
		eventRepo:      eventRepo,
		attendanceRepo: attendanceRepo,
		userRepo:       userRepo,
		cache:          c,
		metrics:        metrics,
		cacheTTL:       cacheTTL,
		now:            time.Now,
	}
}

// Create は新規イベントを作成する。
// 開始時刻は呼び出し時点より厳密に未来、終了時刻は開始時刻以降であること。
// ホストユーザーが存在しない場合はUSER_NOT_FOUNDを返す。
// 成功時はイベントキャッシュを全破棄する。
func (s *Service) Create(ctx context.Context, input CreateInput, hostID string) (*model.Event, error) {
	if input.Title == "" {
		return nil, model.NewInvalidRequestError("タイトルは必須です")
	}

	now := s.now()
	if !input.StartTime.After(now) {
		return nil, model.NewStartTimeInPastError()
	}
	if input.EndTime.Before(input.StartTime) {
		return nil, model.NewInvalidTimeRangeError()
	}

	visibility := input.Visibility
	if visibility == "" {
		visibility = model.VisibilityPublic
	}
	if !model.IsValidVisibility(visibility) {
		return nil, model.NewInvalidVisibilityError(string(visibility))
	}

	host, err := s.userRepo.FindByID(ctx, hostID, model.ScopeActive)
	if err != nil {
		return nil, fmt.Errorf("ホストユーザーの取得に失敗しました: %w", err)
	}
	if host == nil {
		return nil, model.NewUserNotFoundError(hostID)
	}

	event := &model.Event{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		HostID:      host.ID,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Location:    input.Location,
		Visibility:  visibility,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("イベントの作成に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordEventCreated()
	}
	s.evictCache(ctx)

	return event, nil
}

// Update はイベントを部分更新する。
// nilでないフィールドのみ適用し、マージ後の時刻不変条件を再検証する。
// ホストまたは管理者のみ実行可能。成功時はイベントキャッシュを全破棄する。
func (s *Service) Update(ctx context.Context, eventID string, input UpdateInput, actor *model.Actor) (*model.Event, error) {
	event, err := s.eventRepo.FindByID(ctx, eventID, model.ScopeActive)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return nil, model.NewEventNotFoundError(eventID)
	}

	if !authz.CanMutateEvent(actor, event) {
		if actor == nil {
			return nil, model.NewUnauthenticatedError()
		}
		return nil, model.NewForbiddenError("ホストしているイベントのみ更新できます")
	}

	if input.Title != nil {
		if *input.Title == "" {
			return nil, model.NewInvalidRequestError("タイトルは必須です")
		}
		event.Title = *input.Title
	}
	if input.Description != nil {
		event.Description = *input.Description
	}
	if input.StartTime != nil {
		event.StartTime = *input.StartTime
	}
	if input.EndTime != nil {
		event.EndTime = *input.EndTime
	}
	if input.Location != nil {
		event.Location = *input.Location
	}
	if input.Visibility != nil {
		if !model.IsValidVisibility(*input.Visibility) {
			return nil, model.NewInvalidVisibilityError(string(*input.Visibility))
		}
		event.Visibility = *input.Visibility
	}

	// マージ後の状態で時刻不変条件を再検証する
	if event.EndTime.Before(event.StartTime) {
		return nil, model.NewInvalidTimeRangeError()
	}

	event.UpdatedAt = s.now()
	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("イベントの更新に失敗しました: %w", err)
	}

	s.evictCache(ctx)
	return event, nil
}

// Delete はイベントを論理削除する。物理削除は行わない。
// 関連する出欠行の削除マーカーは変更しない（カスケードしない）。
// ホストまたは管理者のみ実行可能。成功時はイベントキャッシュを全破棄する。
func (s *Service) Delete(ctx context.Context, eventID string, actor *model.Actor) error {
	event, err := s.eventRepo.FindByID(ctx, eventID, model.ScopeActive)
	if err != nil {
		return fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if event == nil {
		return model.NewEventNotFoundError(eventID)
	}

	if !authz.CanMutateEvent(actor, event) {
		if actor == nil {
			return model.NewUnauthenticatedError()
		}
		return model.NewForbiddenError("ホストしているイベントのみ削除できます")
	}

	if err := s.eventRepo.SetDeletedAt(ctx, eventID, s.now()); err != nil {
		return fmt.Errorf("イベントの削除に失敗しました: %w", err)
	}

	s.evictCache(ctx)
	return nil
}

// GetDetails はイベント詳細を出欠集計・参加者一覧付きで返す。
// PRIVATEイベントはホスト・管理者・参加者のみ閲覧可能。
// 結果は(eventID, actorID)ごとにキャッシュする。閲覧者によって
// 認可結果が異なるため、同一イベントでもビューア別のエントリに分ける。
func (s *Service) GetDetails(ctx context.Context, eventID string, actor *model.Actor) (*Details, error) {
	cacheKey := detailCacheKey(eventID, actor)
	if cached, ok := s.cacheGet(ctx, cacheKey); ok {
		var details Details
		if err := json.Unmarshal(cached, &details); err == nil {
			return &details, nil
		}
		// 壊れたエントリは無視して再計算する
	}

	// 参加者数はイベント行とJOINした射影で一度に取得する
	withCount, err := s.eventRepo.FindWithAttendeeCount(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if withCount == nil {
		return nil, model.NewEventNotFoundError(eventID)
	}

	isAttendee := false
	if actor != nil {
		isAttendee, err = s.attendanceRepo.ExistsActive(ctx, eventID, actor.ID)
		if err != nil {
			return nil, fmt.Errorf("出欠回答の確認に失敗しました: %w", err)
		}
	}

	if !authz.CanViewEvent(actor, &withCount.Event, isAttendee) {
		if actor == nil {
			return nil, model.NewUnauthenticatedError()
		}
		return nil, model.NewForbiddenError("このPRIVATEイベントへのアクセス権がありません")
	}

	breakdown, err := s.attendanceRepo.CountByStatus(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("出欠集計に失敗しました: %w", err)
	}

	attendees, err := s.attendanceRepo.ListAttendees(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("参加者一覧の取得に失敗しました: %w", err)
	}

	details := &Details{
		Event:               withCount.Event,
		AttendanceBreakdown: breakdown,
		AttendeeCount:       withCount.AttendeeCount,
		Attendees:           attendees,
	}

	s.cachePut(ctx, cacheKey, details)
	return details, nil
}

// List はフィルタ条件に合致するイベントをページネーションして返す。
// includeDeletedは管理者のみ指定可能。
func (s *Service) List(ctx context.Context, filter repository.EventFilter, includeDeleted bool, actor *model.Actor, page repository.PageRequest) (*repository.EventPage, error) {
	scope := model.ScopeActive
	if includeDeleted {
		if actor == nil {
			return nil, model.NewUnauthenticatedError()
		}
		if !actor.IsAdmin() {
			return nil, model.NewForbiddenError("削除済みイベントの閲覧は管理者のみ可能です")
		}
		scope = model.ScopeAll
	}

	result, err := s.eventRepo.List(ctx, filter, scope, page)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	return result, nil
}

// ListUpcoming は開始時刻が未来のPUBLICイベントを開始時刻昇順で返す。
func (s *Service) ListUpcoming(ctx context.Context, page repository.PageRequest) (*repository.EventPage, error) {
	result, err := s.eventRepo.ListUpcoming(ctx, s.now(), page)
	if err != nil {
		return nil, fmt.Errorf("開催予定イベントの取得に失敗しました: %w", err)
	}
	return result, nil
}

// ListByHost は指定ユーザーがホストするイベントを返す。
func (s *Service) ListByHost(ctx context.Context, hostID string, page repository.PageRequest) (*repository.EventPage, error) {
	result, err := s.eventRepo.ListByHost(ctx, hostID, model.ScopeActive, page)
	if err != nil {
		return nil, fmt.Errorf("ホストイベントの取得に失敗しました: %w", err)
	}
	return result, nil
}

// ListAttending は指定ユーザーが出欠回答済みのイベントを返す。
func (s *Service) ListAttending(ctx context.Context, userID string, page repository.PageRequest) (*repository.EventPage, error) {
	result, err := s.eventRepo.ListByAttendee(ctx, userID, page)
	if err != nil {
		return nil, fmt.Errorf("参加イベントの取得に失敗しました: %w", err)
	}
	return result, nil
}

// detailCacheKey は詳細キャッシュのキーを構築する。匿名は共通キーを使用する。
func detailCacheKey(eventID string, actor *model.Actor) string {
	actorKey := "anonymous"
	if actor != nil {
		actorKey = actor.ID
	}
	return fmt.Sprintf("detail:%s:%s", eventID, actorKey)
}

// cacheGet はキャッシュから値を読み取り、ヒット/ミスのメトリクスを記録する。
func (s *Service) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	value, ok, err := s.cache.Get(ctx, CacheNamespace, key)
	if err != nil {
		slog.Warn("cache get failed", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	if s.metrics != nil {
		if ok {
			s.metrics.RecordCacheHit(CacheNamespace)
		} else {
			s.metrics.RecordCacheMiss(CacheNamespace)
		}
	}
	return value, ok
}

// cachePut は値をJSONでキャッシュに格納する。失敗してもリクエストは継続する。
func (s *Service) cachePut(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Warn("cache marshal failed", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	if err := s.cache.Set(ctx, CacheNamespace, key, data, s.cacheTTL); err != nil {
		slog.Warn("cache set failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// evictCache はイベントキャッシュの名前空間全体を同期的に破棄する。
// フィルタ・ページネーションの組み合わせが多く選択的破棄は実用的でないため、
// すべての変更で全破棄する。
func (s *Service) evictCache(ctx context.Context) {
	if err := s.cache.EvictNamespace(ctx, CacheNamespace); err != nil {
		slog.Error("cache eviction failed", slog.String("namespace", CacheNamespace), slog.String("error", err.Error()))
	}
}
