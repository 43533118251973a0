// Package model はドメインモデルを定義する。
package model

import "time"

// Visibility はイベントの公開範囲を表す。
type Visibility string

const (
	// VisibilityPublic は全ユーザー（匿名含む）が閲覧可能なイベント。
	VisibilityPublic Visibility = "PUBLIC"
	// VisibilityPrivate はホスト・管理者・参加者のみ閲覧可能なイベント。
	VisibilityPrivate Visibility = "PRIVATE"
)

// IsValidVisibility は公開範囲の値が定義済みかどうかを返す。
func IsValidVisibility(v Visibility) bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Event は開催イベントを表す。
// EndTimeは常にStartTime以降であることが不変条件。
// DeletedAtがnilでない場合は論理削除済みとして扱う。
// イベントの論理削除は参加情報（Attendance）に自動で波及しない。
// 各エンティティの削除マーカーは独立している。
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	HostID      string     `json:"host_id"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	Location    string     `json:"location"`
	Visibility  Visibility `json:"visibility"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsDeleted はイベントが論理削除済みかどうかを返す。
func (e *Event) IsDeleted() bool {
	return e.DeletedAt != nil
}

// EventWithAttendeeCount はイベントと参加者数を結合した読み取り用モデル。
type EventWithAttendeeCount struct {
	Event
	AttendeeCount int64 `json:"attendee_count"`
}
