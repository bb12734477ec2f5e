package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"todoreminder/internal/model"
	"todoreminder/pkg/otel"
)

// TaskRepository reads reminder candidates from the PostgreSQL todo_task table.
type TaskRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{
		db:     db,
		logger: logger,
	}
}

// FindOpenTasksDueBetween returns open tasks whose due_time lies in [start, end].
func (r *TaskRepository) FindOpenTasksDueBetween(ctx context.Context, start, end time.Time) ([]model.Task, error) {
	query := `
        SELECT id, title, due_time, status
        FROM todo_task
        WHERE status = $1
          AND due_time IS NOT NULL
          AND due_time BETWEEN $2 AND $3
        ORDER BY due_time, id
    `
	ctx, span := otel.DBSpan(ctx, "postgresql", "select", query)
	defer span.End()

	rows, err := r.db.Query(ctx, query, int(model.TaskStatusOpen), start, end)
	if err != nil {
		otel.RecordError(span, err)
		r.logger.Error("Failed to query tasks due in window",
			zap.Time("start", start),
			zap.Time("end", end),
			zap.Error(err),
		)
		return nil, fmt.Errorf("query due tasks: %w", err)
	}
	return collectTasks(rows)
}

// FindOpenTasksOverdueBefore returns open tasks whose due_time is strictly before now.
func (r *TaskRepository) FindOpenTasksOverdueBefore(ctx context.Context, now time.Time) ([]model.Task, error) {
	query := `
        SELECT id, title, due_time, status
        FROM todo_task
        WHERE status = $1
          AND due_time IS NOT NULL
          AND due_time < $2
        ORDER BY due_time, id
    `
	ctx, span := otel.DBSpan(ctx, "postgresql", "select", query)
	defer span.End()

	rows, err := r.db.Query(ctx, query, int(model.TaskStatusOpen), now)
	if err != nil {
		otel.RecordError(span, err)
		r.logger.Error("Failed to query overdue tasks",
			zap.Time("now", now),
			zap.Error(err),
		)
		return nil, fmt.Errorf("query overdue tasks: %w", err)
	}
	return collectTasks(rows)
}

func (r *TaskRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func collectTasks(rows pgx.Rows) ([]model.Task, error) {
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var (
			t      model.Task
			status int
		)
		if err := rows.Scan(&t.ID, &t.Title, &t.DueTime, &status); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		t.Status = model.TaskStatus(status)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task rows: %w", err)
	}
	return tasks, nil
}
