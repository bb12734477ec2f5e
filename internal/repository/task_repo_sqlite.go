package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"todoreminder/internal/model"
	"todoreminder/pkg/otel"
	"todoreminder/pkg/util"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

const (
	sqliteDueBetweenQuery = `
        SELECT id, title, due_time, status
        FROM todo_task
        WHERE status = ?
          AND due_time IS NOT NULL
          AND due_time BETWEEN ? AND ?
        ORDER BY due_time, id`

	sqliteOverdueBeforeQuery = `
        SELECT id, title, due_time, status
        FROM todo_task
        WHERE status = ?
          AND due_time IS NOT NULL
          AND due_time < ?
        ORDER BY due_time, id`
)

// SQLiteTaskRepository serves the single-user mode. due_time is stored as unix milliseconds.
type SQLiteTaskRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLiteTaskRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite prefers a single writer; one connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout = 5000")
	if path != ":memory:" {
		_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	logger.Info("SQLite task store ready", zap.String("path", path))
	return &SQLiteTaskRepository{db: db, logger: logger}, nil
}

func (r *SQLiteTaskRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteTaskRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// FindOpenTasksDueBetween returns open tasks whose due time lies in [start, end].
func (r *SQLiteTaskRepository) FindOpenTasksDueBetween(ctx context.Context, start, end time.Time) ([]model.Task, error) {
	ctx, span := otel.DBSpan(ctx, "sqlite", "select", sqliteDueBetweenQuery)
	defer span.End()

	rows, err := r.db.QueryContext(ctx, sqliteDueBetweenQuery,
		int(model.TaskStatusOpen), start.UnixMilli(), end.UnixMilli(),
	)
	if err != nil {
		otel.RecordError(span, err)
		r.logger.Error("Failed to query tasks due in window", zap.Error(err))
		return nil, fmt.Errorf("query due tasks: %w", err)
	}
	return scanSQLiteTasks(rows)
}

// FindOpenTasksOverdueBefore returns open tasks whose due time is strictly before now.
func (r *SQLiteTaskRepository) FindOpenTasksOverdueBefore(ctx context.Context, now time.Time) ([]model.Task, error) {
	ctx, span := otel.DBSpan(ctx, "sqlite", "select", sqliteOverdueBeforeQuery)
	defer span.End()

	rows, err := r.db.QueryContext(ctx, sqliteOverdueBeforeQuery,
		int(model.TaskStatusOpen), now.UnixMilli(),
	)
	if err != nil {
		otel.RecordError(span, err)
		r.logger.Error("Failed to query overdue tasks", zap.Error(err))
		return nil, fmt.Errorf("query overdue tasks: %w", err)
	}
	return scanSQLiteTasks(rows)
}

// Insert adds an open task and returns its id.
func (r *SQLiteTaskRepository) Insert(ctx context.Context, title string, due *time.Time) (int64, error) {
	if strings.TrimSpace(title) == "" {
		return 0, fmt.Errorf("title: %w", util.ErrValidation)
	}
	now := time.Now().UnixMilli()
	var dueMS sql.NullInt64
	if due != nil {
		dueMS = sql.NullInt64{Int64: due.UnixMilli(), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
        INSERT INTO todo_task (title, status, due_time, create_time, update_time)
        VALUES (?, ?, ?, ?, ?)`,
		title, int(model.TaskStatusOpen), dueMS, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert task id: %w", err)
	}
	r.logger.Debug("Task inserted", zap.Int64("task_id", id), zap.String("title", title))
	return id, nil
}

// MarkDone sets the task to done; util.ErrNotFound when no such task exists.
func (r *SQLiteTaskRepository) MarkDone(ctx context.Context, id int64) error {
	now := time.Now().UnixMilli()
	res, err := r.db.ExecContext(ctx, `
        UPDATE todo_task
        SET status = ?, finish_time = ?, update_time = ?
        WHERE id = ?`,
		int(model.TaskStatusDone), now, now, id,
	)
	if err != nil {
		return fmt.Errorf("mark task %d done: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark task %d done: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("task %d: %w", id, util.ErrNotFound)
	}
	return nil
}

func scanSQLiteTasks(rows *sql.Rows) ([]model.Task, error) {
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var (
			t      model.Task
			dueMS  sql.NullInt64
			status int
		)
		if err := rows.Scan(&t.ID, &t.Title, &dueMS, &status); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		if dueMS.Valid {
			due := time.UnixMilli(dueMS.Int64).UTC()
			t.DueTime = &due
		}
		t.Status = model.TaskStatus(status)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task rows: %w", err)
	}
	return tasks, nil
}
