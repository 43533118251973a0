// Package repository はデータ永続化のインターフェースを定義する。
// 読み取り系メソッドはmodel.ReadScopeを明示的に受け取り、
// 論理削除済み行の可視性を呼び出しごとに指定する。
// セッションに紐づく暗黙のフィルタ状態は持たない。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/eventman/internal/model"
)

// PageRequest はページネーションとソートの指定を表す。
// Pageは0始まり。SortFieldが空の場合は開始時刻の昇順でソートする。
type PageRequest struct {
	Page      int
	Size      int
	SortField string
	SortDesc  bool
}

// EventPage はページネーションされたイベント一覧の結果を表す。
type EventPage struct {
	Events        []*model.Event
	Page          int
	Size          int
	TotalElements int64
	TotalPages    int
}

// EventFilter はイベント検索の絞り込み条件を表す。
// 全フィールドが任意で、指定された条件のみAND結合する。
// 未指定（ゼロ値/nil）の条件は全件マッチとして扱う。
type EventFilter struct {
	Title      string            // タイトル部分一致（大文字小文字無視）
	Location   string            // 開催場所部分一致（大文字小文字無視）
	StartDate  *time.Time        // start_time >= StartDate
	EndDate    *time.Time        // end_time <= EndDate
	Visibility *model.Visibility // 公開範囲の完全一致
	HostID     string            // ホストIDの完全一致
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string, scope model.ReadScope) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string, scope model.ReadScope) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスの一意制約違反はIsUniqueViolationで判別可能なエラーを返す。
	Create(ctx context.Context, user *model.User) error

	// List は全ユーザーの一覧を返す。
	List(ctx context.Context, scope model.ReadScope) ([]*model.User, error)

	// SetDeletedAt はユーザーの論理削除マーカーを設定する。行の物理削除は行わない。
	SetDeletedAt(ctx context.Context, id string, deletedAt time.Time) error
}

// EventRepository はイベントデータの永続化インターフェース。
type EventRepository interface {
	// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
	// ScopeActiveでは論理削除済みイベントも見つからない扱いになる。
	FindByID(ctx context.Context, id string, scope model.ReadScope) (*model.Event, error)

	// Create はイベントを作成する。
	Create(ctx context.Context, event *model.Event) error

	// Update はイベントの全フィールドを上書き更新する。
	// 部分更新のマージはサービス層で行う。
	Update(ctx context.Context, event *model.Event) error

	// SetDeletedAt はイベントの論理削除マーカーを設定する。
	// 関連する出欠行には波及しない。カスケードは呼び出し側の明示的な判断とする。
	SetDeletedAt(ctx context.Context, id string, deletedAt time.Time) error

	// List はフィルタ条件に合致するイベントをページネーションして返す。
	List(ctx context.Context, filter EventFilter, scope model.ReadScope, page PageRequest) (*EventPage, error)

	// ListUpcoming は開始時刻が未来のPUBLICイベントを開始時刻昇順で返す。
	ListUpcoming(ctx context.Context, now time.Time, page PageRequest) (*EventPage, error)

	// ListByHost は指定ユーザーがホストするイベントを返す。
	ListByHost(ctx context.Context, hostID string, scope model.ReadScope, page PageRequest) (*EventPage, error)

	// ListByAttendee は指定ユーザーが出欠回答済み（論理削除されていない回答）の
	// イベントを返す。イベント・回答の両方の削除マーカーを考慮する。
	ListByAttendee(ctx context.Context, userID string, page PageRequest) (*EventPage, error)

	// ListEndingSoon は終了時刻が[now, soon]の範囲にある未削除イベントを返す。
	// リマインダーワーカーのデータアクセスヘルパー。
	ListEndingSoon(ctx context.Context, now, soon time.Time) ([]*model.Event, error)

	// FindWithAttendeeCount はイベントと有効な出欠回答数を結合して取得する。
	// 見つからない場合はnilを返す。
	FindWithAttendeeCount(ctx context.Context, eventID string) (*model.EventWithAttendeeCount, error)
}

// AttendanceRepository は出欠回答データの永続化インターフェース。
// 複合キー (event_id, user_id) で行を一意に識別する。
type AttendanceRepository interface {
	// Upsert は出欠回答を複合キーでUPSERTする。
	// 既存行がある場合はstatus/responded_atを上書きし、論理削除マーカーをクリアする。
	// 同時挿入の競合はストレージのON CONFLICTで解決する。
	Upsert(ctx context.Context, attendance *model.Attendance) error

	// FindByEventAndUser は複合キーで出欠回答を取得する。見つからない場合はnilを返す。
	FindByEventAndUser(ctx context.Context, eventID, userID string, scope model.ReadScope) (*model.Attendance, error)

	// ExistsActive は有効な（論理削除されていない）出欠回答の有無を返す。
	ExistsActive(ctx context.Context, eventID, userID string) (bool, error)

	// CountByStatus は有効な出欠回答をステータスごとに集計して返す。
	// 回答が1件もない場合は空のマップを返す。
	CountByStatus(ctx context.Context, eventID string) (map[model.AttendanceStatus]int64, error)

	// ListAttendees はイベントの有効な出欠回答をユーザー名付きで返す。
	ListAttendees(ctx context.Context, eventID string) ([]model.Attendee, error)

	// SetDeletedAt は出欠回答の論理削除マーカーを設定する（回答の取り下げ）。
	// 対象行が存在しない場合はエラーを返す。
	SetDeletedAt(ctx context.Context, eventID, userID string, deletedAt time.Time) error
}
