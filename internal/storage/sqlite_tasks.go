package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hyperdock/hokan/internal/models"
)

const taskColumns = `id, task_type, user_id, status, progress, result, error, created_at, updated_at`

// CreateTask inserts a task record.
func (s *SQLiteStorage) CreateTask(ctx context.Context, task *models.Task) error {
	resultJSON, err := marshalTaskResult(task)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, string(task.Kind), task.OwnerID, string(task.Status), task.Progress,
		resultJSON, task.Error, task.CreatedAt, task.UpdatedAt,
	)
	return err
}

// UpdateTask overwrites the stored task record matched by (ID, OwnerID).
func (s *SQLiteStorage) UpdateTask(ctx context.Context, task *models.Task) error {
	resultJSON, err := marshalTaskResult(task)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, progress = ?, result = ?, error = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		string(task.Status), task.Progress, resultJSON, task.Error, task.UpdatedAt,
		task.ID, task.OwnerID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("task %s: %w", task.ID, ErrNotFound)
	}
	return nil
}

// GetTask returns the task matching (id, ownerID), or ErrNotFound.
func (s *SQLiteStorage) GetTask(ctx context.Context, id, ownerID string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, id, ownerID)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns up to limit tasks for ownerID, newest first.
func (s *SQLiteStorage) ListTasks(ctx context.Context, ownerID string, limit int) ([]*models.Task, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE user_id = ?
		 ORDER BY created_at DESC LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// ListTasksByStatus returns all tasks in the given status across owners.
// Used at startup to reconcile work orphaned by a process restart.
func (s *SQLiteStorage) ListTasksByStatus(ctx context.Context, status models.TaskState) ([]*models.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE status = ?`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

// CountTasksByStatus returns task counts per status for ownerID.
func (s *SQLiteStorage) CountTasksByStatus(ctx context.Context, ownerID string) (map[string]int64, error) {
	return s.countTasksGrouped(ctx, ownerID, "status")
}

// CountTasksByKind returns task counts per kind for ownerID.
func (s *SQLiteStorage) CountTasksByKind(ctx context.Context, ownerID string) (map[string]int64, error) {
	return s.countTasksGrouped(ctx, ownerID, "task_type")
}

func (s *SQLiteStorage) countTasksGrouped(ctx context.Context, ownerID, column string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+column+`, COUNT(*) FROM tasks WHERE user_id = ? GROUP BY `+column, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

// DeleteTerminalTasksBefore removes terminal tasks last updated before cutoff
// and returns the number removed.
func (s *SQLiteStorage) DeleteTerminalTasksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE status IN (?, ?, ?) AND updated_at < ?`,
		string(models.TaskCompleted), string(models.TaskFailed), string(models.TaskCancelled),
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func marshalTaskResult(task *models.Task) (string, error) {
	if task.Result == nil {
		return "", nil
	}
	data, err := json.Marshal(task.Result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task result: %w", err)
	}
	return string(data), nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		task       models.Task
		kind       string
		status     string
		resultJSON sql.NullString
		taskErr    sql.NullString
	)
	err := row.Scan(&task.ID, &kind, &task.OwnerID, &status, &task.Progress,
		&resultJSON, &taskErr, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}
	task.Kind = models.TaskKind(kind)
	task.Status = models.TaskState(status)
	task.Error = taskErr.String
	if resultJSON.String != "" {
		if err := json.Unmarshal([]byte(resultJSON.String), &task.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task result: %w", err)
		}
	}
	return &task, nil
}

func collectTasks(rows *sql.Rows) ([]*models.Task, error) {
	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
