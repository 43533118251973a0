// Package attendance は出欠回答（RSVP）のドメインロジックを提供する。
// (イベント, ユーザー) ペアごとの回答状態を冪等なUPSERTで管理する。
package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/eventman/internal/authz"
	"github.com/hitoshi/eventman/internal/cache"
	"github.com/hitoshi/eventman/internal/event"
	"github.com/hitoshi/eventman/internal/model"
	"github.com/hitoshi/eventman/internal/repository"
)

// MetricsRecorder は出欠サービスが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordAttendanceUpdate(status string)
}

// Service は出欠回答のサービス層。
// どのステータスからどのステータスへも直接遷移できる。不正な遷移は存在しない。
type Service struct {
	eventRepo      repository.EventRepository
	attendanceRepo repository.AttendanceRepository
	cache          cache.Cache
	metrics        MetricsRecorder
	now            func() time.Time
}

// NewService はattendance.Serviceを生成する。metricsはnil可。
func NewService(
	eventRepo repository.EventRepository,
	attendanceRepo repository.AttendanceRepository,
	c cache.Cache,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		eventRepo:      eventRepo,
		attendanceRepo: attendanceRepo,
		cache:          c,
		metrics:        metrics,
		now:            time.Now,
	}
}

// Set はアクターの出欠回答を登録または上書きする。
// 行が存在しない場合は新規作成し、存在する場合はステータスを上書きする。
// 同一ステータスの再回答でもresponded_atは無条件に更新される（冪等だがno-opではない）。
// 取り下げ済みの回答は復活する。
// PRIVATEイベントはホスト・管理者・既存参加者のみ回答可能。
// 成功時はイベントキャッシュを全破棄する（キャッシュ済み詳細の集計が変わるため）。
func (s *Service) Set(ctx context.Context, eventID string, actor *model.Actor, status model.AttendanceStatus) (*model.Attendance, error) {
	if actor == nil {
		return nil, model.NewUnauthenticatedError()
	}
	if !model.IsValidAttendanceStatus(status) {
		return nil, model.NewInvalidStatusError(string(status))
	}

	ev, err := s.eventRepo.FindByID(ctx, eventID, model.ScopeActive)
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if ev == nil {
		return nil, model.NewEventNotFoundError(eventID)
	}

	isAttendee, err := s.attendanceRepo.ExistsActive(ctx, eventID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("出欠回答の確認に失敗しました: %w", err)
	}

	if !authz.CanAttendEvent(actor, ev, isAttendee) {
		return nil, model.NewForbiddenError("このPRIVATEイベントには出欠回答できません")
	}

	now := s.now()
	record := &model.Attendance{
		EventID:     eventID,
		UserID:      actor.ID,
		Status:      status,
		RespondedAt: now,
		UpdatedAt:   now,
	}

	if err := s.attendanceRepo.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("出欠回答の保存に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordAttendanceUpdate(string(status))
	}
	s.evictCache(ctx)

	return record, nil
}

// GetStatus はアクター自身の出欠回答ステータスを返す。
// 有効な回答行が存在しない場合は番兵値NONEを返す。
func (s *Service) GetStatus(ctx context.Context, eventID string, actor *model.Actor) (model.AttendanceStatus, error) {
	if actor == nil {
		return model.AttendanceNone, model.NewUnauthenticatedError()
	}

	ev, err := s.eventRepo.FindByID(ctx, eventID, model.ScopeActive)
	if err != nil {
		return model.AttendanceNone, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if ev == nil {
		return model.AttendanceNone, model.NewEventNotFoundError(eventID)
	}

	record, err := s.attendanceRepo.FindByEventAndUser(ctx, eventID, actor.ID, model.ScopeActive)
	if err != nil {
		return model.AttendanceNone, fmt.Errorf("出欠回答の取得に失敗しました: %w", err)
	}
	if record == nil {
		return model.AttendanceNone, nil
	}
	return record.Status, nil
}

// Withdraw はアクター自身の出欠回答を取り下げる（論理削除）。
// 有効な回答行が存在しない場合はATTENDANCE_NOT_FOUNDを返す。
// 成功時はイベントキャッシュを全破棄する。
func (s *Service) Withdraw(ctx context.Context, eventID string, actor *model.Actor) error {
	if actor == nil {
		return model.NewUnauthenticatedError()
	}

	ev, err := s.eventRepo.FindByID(ctx, eventID, model.ScopeActive)
	if err != nil {
		return fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if ev == nil {
		return model.NewEventNotFoundError(eventID)
	}

	record, err := s.attendanceRepo.FindByEventAndUser(ctx, eventID, actor.ID, model.ScopeActive)
	if err != nil {
		return fmt.Errorf("出欠回答の取得に失敗しました: %w", err)
	}
	if record == nil {
		return model.NewAttendanceNotFoundError(eventID, actor.ID)
	}

	if err := s.attendanceRepo.SetDeletedAt(ctx, eventID, actor.ID, s.now()); err != nil {
		return fmt.Errorf("出欠回答の取り下げに失敗しました: %w", err)
	}

	s.evictCache(ctx)
	return nil
}

// evictCache はイベントキャッシュの名前空間全体を同期的に破棄する。
// 出欠の変更はキャッシュ済みイベント詳細の集計に影響するため、
// イベント自体の変更と同様に全破棄する。
func (s *Service) evictCache(ctx context.Context) {
	if err := s.cache.EvictNamespace(ctx, event.CacheNamespace); err != nil {
		slog.Error("cache eviction failed", slog.String("namespace", event.CacheNamespace), slog.String("error", err.Error()))
	}
}
