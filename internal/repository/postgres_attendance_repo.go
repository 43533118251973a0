package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/eventman/internal/model"
)

// PostgresAttendanceRepo はPostgreSQLを使用した出欠回答リポジトリ。
type PostgresAttendanceRepo struct {
	db *sql.DB
}

// NewPostgresAttendanceRepo はPostgresAttendanceRepoを生成する。
func NewPostgresAttendanceRepo(db *sql.DB) *PostgresAttendanceRepo {
	return &PostgresAttendanceRepo{db: db}
}

// Upsert は出欠回答を複合キー (event_id, user_id) でUPSERTする。
// 同時挿入の競合はON CONFLICTでストレージ側が解決するため、
// read-then-write方式のような未定義の競合は発生しない。
// 既存行（論理削除済み含む）はstatus/responded_atを上書きし、削除マーカーをクリアする。
func (r *PostgresAttendanceRepo) Upsert(ctx context.Context, attendance *model.Attendance) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attendances (event_id, user_id, status, responded_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 ON CONFLICT (event_id, user_id) DO UPDATE
		 SET status = EXCLUDED.status,
		     responded_at = EXCLUDED.responded_at,
		     deleted_at = NULL,
		     updated_at = EXCLUDED.updated_at`,
		attendance.EventID, attendance.UserID, attendance.Status,
		attendance.RespondedAt, attendance.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert attendance: %w", err)
	}
	return nil
}

// FindByEventAndUser は複合キーで出欠回答を取得する。見つからない場合はnilを返す。
func (r *PostgresAttendanceRepo) FindByEventAndUser(ctx context.Context, eventID, userID string, scope model.ReadScope) (*model.Attendance, error) {
	query := `SELECT event_id, user_id, status, responded_at, deleted_at, created_at, updated_at
		 FROM attendances a WHERE a.event_id = $1 AND a.user_id = $2` + scopeClause(scope, "a")

	attendance := &model.Attendance{}
	err := r.db.QueryRowContext(ctx, query, eventID, userID).Scan(
		&attendance.EventID, &attendance.UserID, &attendance.Status,
		&attendance.RespondedAt, &attendance.DeletedAt,
		&attendance.CreatedAt, &attendance.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find attendance: %w", err)
	}
	return attendance, nil
}

// ExistsActive は有効な（論理削除されていない）出欠回答の有無を返す。
func (r *PostgresAttendanceRepo) ExistsActive(ctx context.Context, eventID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM attendances
		     WHERE event_id = $1 AND user_id = $2 AND deleted_at IS NULL
		 )`,
		eventID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check attendance existence: %w", err)
	}
	return exists, nil
}

// CountByStatus は有効な出欠回答をステータスごとに集計して返す。
func (r *PostgresAttendanceRepo) CountByStatus(ctx context.Context, eventID string) (map[model.AttendanceStatus]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM attendances
		 WHERE event_id = $1 AND deleted_at IS NULL
		 GROUP BY status`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count attendance by status: %w", err)
	}
	defer rows.Close()

	breakdown := make(map[model.AttendanceStatus]int64)
	for rows.Next() {
		var status model.AttendanceStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan attendance count: %w", err)
		}
		breakdown[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendance counts: %w", err)
	}
	return breakdown, nil
}

// ListAttendees はイベントの有効な出欠回答をユーザー名付きで回答日時昇順に返す。
func (r *PostgresAttendanceRepo) ListAttendees(ctx context.Context, eventID string) ([]model.Attendee, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.user_id, u.name, a.status, a.responded_at
		 FROM attendances a
		 JOIN users u ON u.id = a.user_id
		 WHERE a.event_id = $1 AND a.deleted_at IS NULL
		 ORDER BY a.responded_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendees: %w", err)
	}
	defer rows.Close()

	var attendees []model.Attendee
	for rows.Next() {
		var a model.Attendee
		if err := rows.Scan(&a.UserID, &a.Name, &a.Status, &a.RespondedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attendee: %w", err)
		}
		attendees = append(attendees, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendees: %w", err)
	}
	return attendees, nil
}

// SetDeletedAt は出欠回答の論理削除マーカーを設定する（回答の取り下げ）。
func (r *PostgresAttendanceRepo) SetDeletedAt(ctx context.Context, eventID, userID string, deletedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE attendances SET deleted_at = $3, updated_at = $3
		 WHERE event_id = $1 AND user_id = $2 AND deleted_at IS NULL`,
		eventID, userID, deletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to soft-delete attendance: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("attendance not found: event=%s user=%s", eventID, userID)
	}
	return nil
}

// compile-time interface check
var _ AttendanceRepository = (*PostgresAttendanceRepo)(nil)
