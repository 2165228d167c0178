package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BoardService handles columns and tasks of a project's board.
// Column structure is manager-controlled; tasks are edited by any project member.
type BoardService struct {
	authz   Authorizer
	members MembershipManager
	repo    BoardRepository
}

// NewBoardService creates a new board service
func NewBoardService(authz Authorizer, members MembershipManager, repo BoardRepository) *BoardService {
	return &BoardService{
		authz:   authz,
		members: members,
		repo:    repo,
	}
}

// ============================================================================
// Columns
// ============================================================================

// CreateColumnInput represents input for creating a column
type CreateColumnInput struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// CreateColumn adds a column to a project (requires manager role)
func (s *BoardService) CreateColumn(ctx context.Context, userID, projectID string, input CreateColumnInput) (*Column, error) {
	if _, err := s.authz.AuthorizeProject(ctx, userID, projectID, ResourceColumn, ActionCreate); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if input.Position < 0 {
		return nil, fmt.Errorf("%w: position must not be negative", ErrInvalidInput)
	}

	if err := s.ensureColumnNameFree(ctx, projectID, name, ""); err != nil {
		return nil, err
	}

	column := &Column{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      name,
		Position:  input.Position,
	}
	if err := s.repo.CreateColumn(ctx, column); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, ErrColumnNameTaken
		}
		return nil, err
	}
	return column, nil
}

// ListColumns returns the project's columns ordered by position
func (s *BoardService) ListColumns(ctx context.Context, userID, projectID string) ([]Column, error) {
	if _, err := s.authz.AuthorizeProject(ctx, userID, projectID, ResourceColumn, ActionView); err != nil {
		return nil, err
	}
	return s.repo.ListColumns(ctx, projectID)
}

// GetColumn retrieves a column (requires project membership)
func (s *BoardService) GetColumn(ctx context.Context, userID, columnID string) (*Column, error) {
	column, err := s.repo.GetColumn(ctx, columnID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.AuthorizeProject(ctx, userID, column.ProjectID, ResourceColumn, ActionView); err != nil {
		return nil, err
	}
	return column, nil
}

// UpdateColumnInput represents input for updating a column
type UpdateColumnInput struct {
	Name     *string `json:"name,omitempty"`
	Position *int    `json:"position,omitempty"`
}

// UpdateColumn renames or moves a column (requires manager role)
func (s *BoardService) UpdateColumn(ctx context.Context, userID, columnID string, input UpdateColumnInput) (*Column, error) {
	column, err := s.repo.GetColumn(ctx, columnID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.AuthorizeProject(ctx, userID, column.ProjectID, ResourceColumn, ActionUpdate); err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		if name != column.Name {
			if err := s.ensureColumnNameFree(ctx, column.ProjectID, name, column.ID); err != nil {
				return nil, err
			}
		}
		column.Name = name
	}
	if input.Position != nil {
		if *input.Position < 0 {
			return nil, fmt.Errorf("%w: position must not be negative", ErrInvalidInput)
		}
		column.Position = *input.Position
	}

	if err := s.repo.UpdateColumn(ctx, column); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, ErrColumnNameTaken
		}
		return nil, err
	}
	return column, nil
}

// DeleteColumn deletes a column and its tasks (requires manager role)
func (s *BoardService) DeleteColumn(ctx context.Context, userID, columnID string) error {
	column, err := s.repo.GetColumn(ctx, columnID)
	if err != nil {
		return err
	}
	if _, err := s.authz.AuthorizeProject(ctx, userID, column.ProjectID, ResourceColumn, ActionDelete); err != nil {
		return err
	}
	return s.repo.DeleteColumn(ctx, columnID)
}

func (s *BoardService) ensureColumnNameFree(ctx context.Context, projectID, name, excludeID string) error {
	taken, err := s.repo.ColumnNameExists(ctx, projectID, name, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return ErrColumnNameTaken
	}
	return nil
}

// ============================================================================
// Tasks
// ============================================================================

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	ColumnID       string    `json:"column_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	DueDate        time.Time `json:"due_date"`
	AssigneeUserID string    `json:"assignee_user_id"`
}

// CreateTask adds a task to a project (requires project membership)
func (s *BoardService) CreateTask(ctx context.Context, userID, projectID string, input CreateTaskInput) (*Task, error) {
	if _, err := s.authz.AuthorizeProject(ctx, userID, projectID, ResourceTask, ActionCreate); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if err := s.ensureColumnInProject(ctx, input.ColumnID, projectID); err != nil {
		return nil, err
	}
	if err := s.ensureAssignee(ctx, input.AssigneeUserID, projectID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	task := &Task{
		ID:             uuid.New().String(),
		Title:          title,
		Description:    input.Description,
		DueDate:        input.DueDate.UTC(),
		ColumnID:       input.ColumnID,
		ProjectID:      projectID,
		AssigneeUserID: input.AssigneeUserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns the project's tasks, optionally narrowed by column and assignee
func (s *BoardService) ListTasks(ctx context.Context, userID, projectID string, filter TaskFilter) ([]Task, error) {
	if _, err := s.authz.AuthorizeProject(ctx, userID, projectID, ResourceTask, ActionView); err != nil {
		return nil, err
	}
	filter.ProjectID = projectID
	return s.repo.ListTasks(ctx, filter)
}

// GetTask retrieves a task (requires project membership)
func (s *BoardService) GetTask(ctx context.Context, userID, taskID string) (*Task, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.AuthorizeProject(ctx, userID, task.ProjectID, ResourceTask, ActionView); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	ColumnID       *string    `json:"column_id,omitempty"`
	AssigneeUserID *string    `json:"assignee_user_id,omitempty"`
}

// UpdateTask edits a task (requires project membership)
func (s *BoardService) UpdateTask(ctx context.Context, userID, taskID string, input UpdateTaskInput) (*Task, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authz.AuthorizeProject(ctx, userID, task.ProjectID, ResourceTask, ActionUpdate); err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate.UTC()
	}
	if input.ColumnID != nil && *input.ColumnID != task.ColumnID {
		if err := s.ensureColumnInProject(ctx, *input.ColumnID, task.ProjectID); err != nil {
			return nil, err
		}
		task.ColumnID = *input.ColumnID
	}
	if input.AssigneeUserID != nil && *input.AssigneeUserID != task.AssigneeUserID {
		if err := s.ensureAssignee(ctx, *input.AssigneeUserID, task.ProjectID); err != nil {
			return nil, err
		}
		task.AssigneeUserID = *input.AssigneeUserID
	}
	task.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask deletes a task (requires manager role)
func (s *BoardService) DeleteTask(ctx context.Context, userID, taskID string) error {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if _, err := s.authz.AuthorizeProject(ctx, userID, task.ProjectID, ResourceTask, ActionDelete); err != nil {
		return err
	}
	return s.repo.DeleteTask(ctx, taskID)
}

// ensureColumnInProject rejects a column that is unknown or belongs to another project
func (s *BoardService) ensureColumnInProject(ctx context.Context, columnID, projectID string) error {
	if columnID == "" {
		return fmt.Errorf("%w: column_id is required", ErrInvalidInput)
	}
	column, err := s.repo.GetColumn(ctx, columnID)
	if err != nil {
		if isNotFound(err) {
			return ErrColumnProjectMismatch
		}
		return err
	}
	if column.ProjectID != projectID {
		return ErrColumnProjectMismatch
	}
	return nil
}

func (s *BoardService) ensureAssignee(ctx context.Context, assigneeID, projectID string) error {
	if assigneeID == "" {
		return fmt.Errorf("%w: assignee_user_id is required", ErrInvalidInput)
	}
	if _, err := s.members.GetProjectMembership(ctx, assigneeID, projectID); err != nil {
		if isNotFound(err) {
			return ErrAssigneeNotMember
		}
		return err
	}
	return nil
}
