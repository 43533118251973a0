// Package authz はイベント・出欠操作の認可ポリシーを提供する。
// 全ての判定はロード済みのアクター/リソースに対する純粋関数であり、I/Oを行わない。
// 各エンドポイントに散らばりがちなロール判定をここに集約する。
package authz

import "github.com/hitoshi/eventman/internal/model"

// CanMutateEvent はアクターがイベントを変更（更新・削除）できるかを判定する。
// 管理者またはイベントのホストのみ変更可能。匿名（nil）は常に不可。
func CanMutateEvent(actor *model.Actor, event *model.Event) bool {
	if actor == nil {
		return false
	}
	return actor.Role == model.RoleAdmin || actor.ID == event.HostID
}

// CanViewEvent はアクターがイベントを閲覧できるかを判定する。
// PUBLICイベントは誰でも（匿名含む）閲覧可能。
// PRIVATEイベントはホスト・管理者・既存参加者のみ閲覧可能。
// isAttendeeは呼び出し側が論理削除されていない出欠行の有無から判定して渡す。
func CanViewEvent(actor *model.Actor, event *model.Event, isAttendee bool) bool {
	if event.Visibility == model.VisibilityPublic {
		return true
	}
	if CanMutateEvent(actor, event) {
		return true
	}
	return actor != nil && isAttendee
}

// CanAttendEvent はアクターがイベントに出欠回答できるかを判定する。
// 認証済みであることが前提。PUBLICイベントは認証済みなら誰でも回答可能。
// PRIVATEイベントは閲覧と同じ規則（ホスト・管理者・既存参加者）に従う。
func CanAttendEvent(actor *model.Actor, event *model.Event, isAttendee bool) bool {
	if actor == nil {
		return false
	}
	return CanViewEvent(actor, event, isAttendee)
}

// CanManageUsers はアクターがユーザー管理操作（一覧・取得・無効化）を行えるかを判定する。
func CanManageUsers(actor *model.Actor) bool {
	return actor.IsAdmin()
}
