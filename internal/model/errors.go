// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, event, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeEventNotFound      = "EVENT_NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeAttendanceNotFound = "ATTENDANCE_NOT_FOUND"
	ErrCodeInvalidTimeRange   = "INVALID_TIME_RANGE"
	ErrCodeStartTimeInPast    = "START_TIME_IN_PAST"
	ErrCodeInvalidStatus      = "INVALID_STATUS"
	ErrCodeInvalidVisibility  = "INVALID_VISIBILITY"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnauthenticated    = "UNAUTHENTICATED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
)

// NewEventNotFoundError はイベント未検出エラーを生成する。
// 論理削除済みのイベントも、通常スコープの読み取りでは未検出として扱う。
func NewEventNotFoundError(eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("指定されたイベントが見つかりません: %s", eventID),
		Category: "event",
		Action:   "イベントIDを確認してください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError(userID string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", userID),
		Category: "auth",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewAttendanceNotFoundError は出欠回答未検出エラーを生成する。
func NewAttendanceNotFoundError(eventID, userID string) *APIError {
	return &APIError{
		Code:     ErrCodeAttendanceNotFound,
		Message:  fmt.Sprintf("出欠回答が見つかりません: event=%s user=%s", eventID, userID),
		Category: "event",
		Action:   "先に出欠を回答してください。",
	}
}

// NewInvalidTimeRangeError は終了時刻が開始時刻より前の場合のエラーを生成する。
func NewInvalidTimeRangeError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTimeRange,
		Message:  "終了時刻は開始時刻以降である必要があります。",
		Category: "validation",
		Action:   "開始時刻と終了時刻を確認してください。",
	}
}

// NewStartTimeInPastError は開始時刻が過去の場合のエラーを生成する。
func NewStartTimeInPastError() *APIError {
	return &APIError{
		Code:     ErrCodeStartTimeInPast,
		Message:  "開始時刻は未来の日時を指定してください。",
		Category: "validation",
		Action:   "開始時刻を現在より後の日時に設定してください。",
	}
}

// NewInvalidStatusError は無効な出欠ステータスエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効な出欠ステータスです: %s", status),
		Category: "validation",
		Action:   "ステータスには GOING、MAYBE、DECLINED のいずれかを指定してください。",
	}
}

// NewInvalidVisibilityError は無効な公開範囲エラーを生成する。
func NewInvalidVisibilityError(visibility string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidVisibility,
		Message:  fmt.Sprintf("無効な公開範囲です: %s", visibility),
		Category: "validation",
		Action:   "公開範囲には PUBLIC または PRIVATE を指定してください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "validation",
		Action:   "別のメールアドレスを使用するか、ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// メール未登録とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUnauthenticatedError は未認証エラーを生成する。
// 有効な認証情報が提示されていない場合に使用する（401）。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
// 認証済みだが操作権限がない場合に使用する（403）。
func NewForbiddenError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("この操作を行う権限がありません: %s", reason),
		Category: "auth",
		Action:   "イベントのホストまたは管理者にお問い合わせください。",
	}
}

// NewInvalidRequestError はリクエスト形式不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}
