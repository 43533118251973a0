package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"

	"github.com/hitoshi/eventman/internal/model"
)

// 各PostgresリポジトリがインターフェースをImplementsすることを検証
func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
	var _ EventRepository = (*PostgresEventRepo)(nil)
	var _ AttendanceRepository = (*PostgresAttendanceRepo)(nil)
}

// IsUniqueViolationがSQLSTATE 23505のみを一意制約違反と判定することを検証
func TestIsUniqueViolation(t *testing.T) {
	uniqueErr := &pq.Error{Code: "23505"}
	if !IsUniqueViolation(uniqueErr) {
		t.Error("expected 23505 to be a unique violation")
	}
	if !IsUniqueViolation(fmt.Errorf("wrapped: %w", uniqueErr)) {
		t.Error("expected wrapped 23505 to be a unique violation")
	}
	if IsUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("foreign key violation should not be a unique violation")
	}
	if IsUniqueViolation(errors.New("plain error")) {
		t.Error("plain error should not be a unique violation")
	}
	if IsUniqueViolation(nil) {
		t.Error("nil should not be a unique violation")
	}
}

// scopeClauseがScopeActiveでのみ除外条件を生成することを検証
func TestScopeClause(t *testing.T) {
	if got := scopeClause(model.ScopeActive, "e"); got != " AND e.deleted_at IS NULL" {
		t.Errorf("ScopeActive clause = %q", got)
	}
	if got := scopeClause(model.ScopeAll, "e"); got != "" {
		t.Errorf("ScopeAll clause = %q, want empty", got)
	}
}

// orderByClauseがホワイトリスト済みフィールドのみ受け付けることを検証
func TestOrderByClause(t *testing.T) {
	tests := []struct {
		name string
		page PageRequest
		want string
	}{
		{"デフォルトは開始時刻昇順", PageRequest{}, " ORDER BY start_time ASC"},
		{"タイトル降順", PageRequest{SortField: "title", SortDesc: true}, " ORDER BY title DESC"},
		{"作成日時昇順", PageRequest{SortField: "created_at"}, " ORDER BY created_at ASC"},
		{"未知のフィールドはデフォルトにフォールバック", PageRequest{SortField: "password_hash; DROP TABLE users"}, " ORDER BY start_time ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := orderByClause(tt.page); got != tt.want {
				t.Errorf("orderByClause() = %q, want %q", got, tt.want)
			}
		})
	}
}

// normalizePageが範囲外の値を丸めることを検証
func TestNormalizePage(t *testing.T) {
	got := normalizePage(PageRequest{Page: -1, Size: 0})
	if got.Page != 0 || got.Size != 20 {
		t.Errorf("normalizePage(-1, 0) = (%d, %d), want (0, 20)", got.Page, got.Size)
	}

	got = normalizePage(PageRequest{Page: 3, Size: 500})
	if got.Page != 3 || got.Size != 100 {
		t.Errorf("normalizePage(3, 500) = (%d, %d), want (3, 100)", got.Page, got.Size)
	}
}

// totalPagesが端数を切り上げることを検証
func TestTotalPages(t *testing.T) {
	tests := []struct {
		total int64
		size  int
		want  int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{99, 10, 10},
	}

	for _, tt := range tests {
		if got := totalPages(tt.total, tt.size); got != tt.want {
			t.Errorf("totalPages(%d, %d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}
