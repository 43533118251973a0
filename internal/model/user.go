package model

import "time"

// Role はユーザーのロールを表す。
type Role string

const (
	// RoleUser は一般ユーザー。
	RoleUser Role = "USER"
	// RoleAdmin は管理者。全イベントの変更とユーザー管理が可能。
	RoleAdmin Role = "ADMIN"
)

// IsValidRole はロールが定義済みの値かを返す。
func IsValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// User はユーザーアカウントを表す。
// PasswordHashはargon2idのPHC形式文字列。APIレスポンスには含めない。
type User struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsDeleted は論理削除済みかを返す。
func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}
