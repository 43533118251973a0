// Package model はドメインモデルを定義する。
package model

// Actor はリクエストを行う認証済み主体（ユーザーID＋ロール）を表す。
// 匿名リクエストでは *Actor が nil になる。
// 認証基盤が供給する値をコアはそのまま信頼する。
type Actor struct {
	ID   string
	Role Role
}

// IsAdmin はアクターが管理者ロールを持つかどうかを返す。
// nilレシーバ（匿名）に対してはfalseを返す。
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// ReadScope は読み取りクエリにおける論理削除行の扱いを指定する。
// 暗黙のセッション状態ではなく、全ての読み取り呼び出しに明示的に渡す。
type ReadScope int

const (
	// ScopeActive は論理削除済みの行を除外する（通常の読み取り）。
	ScopeActive ReadScope = iota
	// ScopeAll は論理削除済みの行も含める（管理者ビュー・復元操作用）。
	ScopeAll
)
