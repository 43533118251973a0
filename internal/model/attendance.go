// Package model はドメインモデルを定義する。
package model

import "time"

// AttendanceStatus はイベントへの出欠回答を表す。
type AttendanceStatus string

const (
	// AttendanceGoing は参加回答。
	AttendanceGoing AttendanceStatus = "GOING"
	// AttendanceMaybe は未定回答。
	AttendanceMaybe AttendanceStatus = "MAYBE"
	// AttendanceDeclined は不参加回答。
	AttendanceDeclined AttendanceStatus = "DECLINED"
	// AttendanceNone は回答行が存在しないことを示す番兵値。
	// 保存される状態ではなく、未回答ペアの読み取り結果としてのみ使用する。
	AttendanceNone AttendanceStatus = "NONE"
)

// IsValidAttendanceStatus は出欠回答として保存可能な値かどうかを返す。
// AttendanceNoneは保存対象外のため false を返す。
func IsValidAttendanceStatus(s AttendanceStatus) bool {
	return s == AttendanceGoing || s == AttendanceMaybe || s == AttendanceDeclined
}

// Attendance はユーザーのイベント出欠回答を表す。
// 複合キー (EventID, UserID) で一意。同一ペアの行は高々1つ。
// RespondedAtは回答が変更されるたびに更新される（同一ステータスの再回答でも更新）。
type Attendance struct {
	EventID     string
	UserID      string
	Status      AttendanceStatus
	RespondedAt time.Time
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Attendee はイベント詳細に含める参加者情報。
// AttendanceとユーザーをJOINして取得される。
type Attendee struct {
	UserID      string           `json:"user_id"`
	Name        string           `json:"name"`
	Status      AttendanceStatus `json:"status"`
	RespondedAt time.Time        `json:"responded_at"`
}
