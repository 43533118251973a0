package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/eventman/internal/model"
)

// PostgresEventRepo はPostgreSQLを使用したイベントリポジトリ。
type PostgresEventRepo struct {
	db *sql.DB
}

// NewPostgresEventRepo はPostgresEventRepoを生成する。
func NewPostgresEventRepo(db *sql.DB) *PostgresEventRepo {
	return &PostgresEventRepo{db: db}
}

const eventColumns = `id, title, description, host_id, start_time, end_time, location, visibility, deleted_at, created_at, updated_at`

// scanEvent は1行からEventを読み取る。
func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	event := &model.Event{}
	err := row.Scan(
		&event.ID, &event.Title, &event.Description, &event.HostID,
		&event.StartTime, &event.EndTime, &event.Location, &event.Visibility,
		&event.DeletedAt, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return event, nil
}

// FindByID は指定IDのイベントを取得する。見つからない場合はnilを返す。
// ScopeActiveでは論理削除済みイベントも見つからない扱いになる。
func (r *PostgresEventRepo) FindByID(ctx context.Context, id string, scope model.ReadScope) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.id = $1` + scopeClause(scope, "e")
	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find event by ID: %w", err)
	}
	return event, nil
}

// Create はイベントを作成する。
func (r *PostgresEventRepo) Create(ctx context.Context, event *model.Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (id, title, description, host_id, start_time, end_time, location, visibility, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.ID, event.Title, event.Description, event.HostID,
		event.StartTime, event.EndTime, event.Location, event.Visibility,
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Update はイベントの全フィールドを上書き更新する。
func (r *PostgresEventRepo) Update(ctx context.Context, event *model.Event) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events
		 SET title = $2, description = $3, start_time = $4, end_time = $5,
		     location = $6, visibility = $7, updated_at = $8
		 WHERE id = $1 AND deleted_at IS NULL`,
		event.ID, event.Title, event.Description, event.StartTime, event.EndTime,
		event.Location, event.Visibility, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("event not found or deleted: %s", event.ID)
	}
	return nil
}

// SetDeletedAt はイベントの論理削除マーカーを設定する。
// 関連する出欠行には波及しない。
func (r *PostgresEventRepo) SetDeletedAt(ctx context.Context, id string, deletedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE events SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, deletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to soft-delete event: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("event not found or already deleted: %s", id)
	}
	return nil
}

// List はフィルタ条件に合致するイベントをページネーションして返す。
// 指定された条件のみAND結合し、未指定の条件は全件マッチとして扱う。
func (r *PostgresEventRepo) List(ctx context.Context, filter EventFilter, scope model.ReadScope, page PageRequest) (*EventPage, error) {
	var conditions []string
	var args []any

	addArg := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.Title != "" {
		addArg(`title ILIKE '%%' || $%d || '%%'`, filter.Title)
	}
	if filter.Location != "" {
		addArg(`location ILIKE '%%' || $%d || '%%'`, filter.Location)
	}
	if filter.StartDate != nil {
		addArg(`start_time >= $%d`, *filter.StartDate)
	}
	if filter.EndDate != nil {
		addArg(`end_time <= $%d`, *filter.EndDate)
	}
	if filter.Visibility != nil {
		addArg(`visibility = $%d`, string(*filter.Visibility))
	}
	if filter.HostID != "" {
		addArg(`host_id = $%d`, filter.HostID)
	}
	if scope == model.ScopeActive {
		conditions = append(conditions, `deleted_at IS NULL`)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	return r.queryPage(ctx, where, args, page)
}

// ListUpcoming は開始時刻が未来のPUBLICイベントを返す。
func (r *PostgresEventRepo) ListUpcoming(ctx context.Context, now time.Time, page PageRequest) (*EventPage, error) {
	where := ` WHERE start_time > $1 AND visibility = 'PUBLIC' AND deleted_at IS NULL`
	return r.queryPage(ctx, where, []any{now}, page)
}

// ListByHost は指定ユーザーがホストするイベントを返す。
func (r *PostgresEventRepo) ListByHost(ctx context.Context, hostID string, scope model.ReadScope, page PageRequest) (*EventPage, error) {
	where := ` WHERE host_id = $1`
	if scope == model.ScopeActive {
		where += ` AND deleted_at IS NULL`
	}
	return r.queryPage(ctx, where, []any{hostID}, page)
}

// ListByAttendee は指定ユーザーが有効な出欠回答を持つイベントを返す。
// イベントと回答の両方の削除マーカーを考慮する。
func (r *PostgresEventRepo) ListByAttendee(ctx context.Context, userID string, page PageRequest) (*EventPage, error) {
	page = normalizePage(page)

	countQuery := `SELECT COUNT(*)
		 FROM events e
		 JOIN attendances a ON a.event_id = e.id
		 WHERE a.user_id = $1 AND a.deleted_at IS NULL AND e.deleted_at IS NULL`
	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count attending events: %w", err)
	}

	query := `SELECT e.id, e.title, e.description, e.host_id, e.start_time, e.end_time,
		        e.location, e.visibility, e.deleted_at, e.created_at, e.updated_at
		 FROM events e
		 JOIN attendances a ON a.event_id = e.id
		 WHERE a.user_id = $1 AND a.deleted_at IS NULL AND e.deleted_at IS NULL
		 ORDER BY e.start_time ASC
		 LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, page.Size, page.Page*page.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to list attending events: %w", err)
	}
	defer rows.Close()

	events, err := collectEvents(rows)
	if err != nil {
		return nil, err
	}

	return &EventPage{
		Events:        events,
		Page:          page.Page,
		Size:          page.Size,
		TotalElements: total,
		TotalPages:    totalPages(total, page.Size),
	}, nil
}

// ListEndingSoon は終了時刻が[now, soon]の範囲にある未削除イベントを返す。
func (r *PostgresEventRepo) ListEndingSoon(ctx context.Context, now, soon time.Time) ([]*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		 WHERE end_time BETWEEN $1 AND $2 AND deleted_at IS NULL
		 ORDER BY end_time ASC`
	rows, err := r.db.QueryContext(ctx, query, now, soon)
	if err != nil {
		return nil, fmt.Errorf("failed to list ending-soon events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// FindWithAttendeeCount はイベントと有効な出欠回答数を結合して取得する。
func (r *PostgresEventRepo) FindWithAttendeeCount(ctx context.Context, eventID string) (*model.EventWithAttendeeCount, error) {
	query := `SELECT e.id, e.title, e.description, e.host_id, e.start_time, e.end_time,
		        e.location, e.visibility, e.deleted_at, e.created_at, e.updated_at,
		        COUNT(a.user_id) FILTER (WHERE a.deleted_at IS NULL)
		 FROM events e
		 LEFT JOIN attendances a ON a.event_id = e.id
		 WHERE e.id = $1 AND e.deleted_at IS NULL
		 GROUP BY e.id, e.title, e.description, e.host_id, e.start_time, e.end_time,
		          e.location, e.visibility, e.deleted_at, e.created_at, e.updated_at`
	result := &model.EventWithAttendeeCount{}
	err := r.db.QueryRowContext(ctx, query, eventID).Scan(
		&result.ID, &result.Title, &result.Description, &result.HostID,
		&result.StartTime, &result.EndTime, &result.Location, &result.Visibility,
		&result.DeletedAt, &result.CreatedAt, &result.UpdatedAt,
		&result.AttendeeCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find event with attendee count: %w", err)
	}
	return result, nil
}

// queryPage は共通のWHERE句からカウントとページ取得を実行する。
func (r *PostgresEventRepo) queryPage(ctx context.Context, where string, args []any, page PageRequest) (*EventPage, error) {
	page = normalizePage(page)

	var total int64
	countQuery := `SELECT COUNT(*) FROM events` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}

	query := `SELECT ` + eventColumns + ` FROM events` + where + orderByClause(page) +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, page.Size, page.Page*page.Size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events, err := collectEvents(rows)
	if err != nil {
		return nil, err
	}

	return &EventPage{
		Events:        events,
		Page:          page.Page,
		Size:          page.Size,
		TotalElements: total,
		TotalPages:    totalPages(total, page.Size),
	}, nil
}

// collectEvents は行イテレータから全イベントを読み取る。
func collectEvents(rows *sql.Rows) ([]*model.Event, error) {
	var events []*model.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// compile-time interface check
var _ EventRepository = (*PostgresEventRepo)(nil)
