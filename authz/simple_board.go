package authz

import (
	"context"
	"database/sql"
	"fmt"
)

// ============================================================================
// Columns
// ============================================================================

// CreateColumn inserts a column; ErrAlreadyExists if the name is used in the project
func (s *SimpleStore) CreateColumn(ctx context.Context, column *Column) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO board_columns (id, project_id, name, position)
		VALUES ($1, $2, $3, $4)
	`, column.ID, column.ProjectID, column.Name, column.Position)
	if err != nil {
		return fmt.Errorf("failed to create column: %w", translateError(err))
	}
	return nil
}

// GetColumn retrieves a column by ID
func (s *SimpleStore) GetColumn(ctx context.Context, id string) (*Column, error) {
	var column Column
	err := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, name, position
		FROM board_columns
		WHERE id = $1
	`, id).Scan(&column.ID, &column.ProjectID, &column.Name, &column.Position)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get column: %w", err)
	}
	return &column, nil
}

// ListColumns returns the project's columns by position
func (s *SimpleStore) ListColumns(ctx context.Context, projectID string) ([]Column, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, name, position
		FROM board_columns
		WHERE project_id = $1
		ORDER BY position ASC, name ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	defer rows.Close()

	columns := make([]Column, 0)
	for rows.Next() {
		var column Column
		if err := rows.Scan(&column.ID, &column.ProjectID, &column.Name, &column.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}

// UpdateColumn updates a column's name and position
func (s *SimpleStore) UpdateColumn(ctx context.Context, column *Column) error {
	return s.execAffectingOne(ctx, `
		UPDATE board_columns
		SET name = $2, position = $3
		WHERE id = $1
	`, column.ID, column.Name, column.Position)
}

// DeleteColumn deletes a column; its tasks cascade
func (s *SimpleStore) DeleteColumn(ctx context.Context, id string) error {
	return s.execAffectingOne(ctx, `DELETE FROM board_columns WHERE id = $1`, id)
}

// ColumnNameExists checks if another column of the project already uses name
func (s *SimpleStore) ColumnNameExists(ctx context.Context, projectID, name, excludeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM board_columns
			WHERE project_id = $1 AND name = $2 AND id <> $3
		)
	`, projectID, name, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check column name: %w", err)
	}
	return exists, nil
}

// ============================================================================
// Tasks
// ============================================================================

const taskColumns = `id, title, COALESCE(description, ''), due_date, column_id, project_id, assignee_user_id, created_at, updated_at`

// CreateTask inserts a task
func (s *SimpleStore) CreateTask(ctx context.Context, task *Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, due_date, column_id, project_id, assignee_user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, task.ID, task.Title, task.Description, task.DueDate, task.ColumnID, task.ProjectID, task.AssigneeUserID, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", translateError(err))
	}
	return nil
}

// GetTask retrieves a task by ID
func (s *SimpleStore) GetTask(ctx context.Context, id string) (*Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// ListTasks returns tasks matching every non-empty filter field
func (s *SimpleStore) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	args := []interface{}{}
	argIndex := 1

	if filter.ProjectID != "" {
		query += fmt.Sprintf(" AND project_id = $%d", argIndex)
		args = append(args, filter.ProjectID)
		argIndex++
	}
	if filter.ColumnID != "" {
		query += fmt.Sprintf(" AND column_id = $%d", argIndex)
		args = append(args, filter.ColumnID)
		argIndex++
	}
	if filter.AssigneeUserID != "" {
		query += fmt.Sprintf(" AND assignee_user_id = $%d", argIndex)
		args = append(args, filter.AssigneeUserID)
	}
	query += " ORDER BY due_date ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// UpdateTask updates a task
func (s *SimpleStore) UpdateTask(ctx context.Context, task *Task) error {
	return s.execAffectingOne(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, due_date = $4, column_id = $5, assignee_user_id = $6, updated_at = $7
		WHERE id = $1
	`, task.ID, task.Title, task.Description, task.DueDate, task.ColumnID, task.AssigneeUserID, task.UpdatedAt)
}

// DeleteTask deletes a task
func (s *SimpleStore) DeleteTask(ctx context.Context, id string) error {
	return s.execAffectingOne(ctx, `DELETE FROM tasks WHERE id = $1`, id)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*Task, error) {
	var task Task
	err := row.Scan(
		&task.ID, &task.Title, &task.Description, &task.DueDate,
		&task.ColumnID, &task.ProjectID, &task.AssigneeUserID,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}
