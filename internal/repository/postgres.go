package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/eventman/internal/model"
)

// uniqueViolationCode はPostgreSQLの一意制約違反のSQLSTATE。
const uniqueViolationCode = "23505"

// IsUniqueViolation はエラーがPostgreSQLの一意制約違反かどうかを返す。
// メールアドレス重複や出欠回答の同時挿入競合の判別に使用する。
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}
	return false
}

// scopeClause は読み取りスコープに応じた論理削除行の除外条件を返す。
// ScopeActiveの場合は "AND <alias>.deleted_at IS NULL"、ScopeAllの場合は空文字。
func scopeClause(scope model.ReadScope, alias string) string {
	if scope == model.ScopeAll {
		return ""
	}
	return fmt.Sprintf(" AND %s.deleted_at IS NULL", alias)
}

// eventSortColumns はイベント一覧のソートに使用できるカラムのホワイトリスト。
// 呼び出し側から渡されたソートフィールドはここを通してSQLに埋め込む。
var eventSortColumns = map[string]string{
	"start_time": "start_time",
	"end_time":   "end_time",
	"title":      "title",
	"location":   "location",
	"created_at": "created_at",
}

// orderByClause はPageRequestからORDER BY句を構築する。
// 未指定または未知のフィールドの場合は開始時刻の昇順を使用する。
func orderByClause(page PageRequest) string {
	column, ok := eventSortColumns[page.SortField]
	if !ok {
		return " ORDER BY start_time ASC"
	}
	direction := "ASC"
	if page.SortDesc {
		direction = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", column, direction)
}

// normalizePage はページ番号とサイズを妥当な範囲に丸める。
func normalizePage(page PageRequest) PageRequest {
	if page.Page < 0 {
		page.Page = 0
	}
	if page.Size <= 0 {
		page.Size = 20
	}
	if page.Size > 100 {
		page.Size = 100
	}
	return page
}

// totalPages は総件数とページサイズから総ページ数を計算する。
func totalPages(total int64, size int) int {
	if total == 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
