package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "taskhub/internal/errors"
	"taskhub/internal/model"
	"taskhub/internal/policy"
	"taskhub/internal/realtime"
	"taskhub/internal/repository"
)

// CreateTaskInput carries the fields accepted on task creation.
type CreateTaskInput struct {
	ProjectID      uuid.UUID
	Title          string
	Description    string
	AssignedTo     *uuid.UUID
	Status         model.TaskStatus
	Priority       model.Priority
	DueDate        *time.Time
	Tags           []string
	EstimatedHours *decimal.Decimal
}

// TaskPayload is the realtime payload for task-created, task-updated and comment-added.
type TaskPayload struct {
	Task *model.Task `json:"task"`
}

// TaskDeletedPayload is the realtime payload for task-deleted.
type TaskDeletedPayload struct {
	TaskID uuid.UUID `json:"taskId"`
}

// TaskService governs task state and comments.
type TaskService interface {
	Create(ctx context.Context, userID uuid.UUID, in CreateTaskInput) (*model.Task, error)
	Get(ctx context.Context, id, userID uuid.UUID) (*model.Task, error)
	// List is not scoped to the caller; any authenticated user may filter across projects.
	List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	Update(ctx context.Context, id uuid.UUID, patch model.TaskPatch) (*model.Task, error)
	AddComment(ctx context.Context, id, userID uuid.UUID, text string) (*model.Task, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type taskService struct {
	tasks     repository.TaskRepository
	projects  repository.ProjectRepository
	publisher realtime.Publisher
}

// NewTaskService wires the task aggregate. A nil publisher discards events.
func NewTaskService(tasks repository.TaskRepository, projects repository.ProjectRepository, publisher realtime.Publisher) TaskService {
	if publisher == nil {
		publisher = realtime.Discard{}
	}
	return &taskService{tasks: tasks, projects: projects, publisher: publisher}
}

func validateTaskEnums(verr *apperrors.ValidationError, status *model.TaskStatus, priority *model.Priority) {
	if status != nil && *status != "" && !status.Valid() {
		verr.Add("status", "Invalid task status")
	}
	if priority != nil && *priority != "" && !priority.Valid() {
		verr.Add("priority", "Invalid priority")
	}
}

// Create adds a task to a project the caller owns or belongs to.
func (s *taskService) Create(ctx context.Context, userID uuid.UUID, in CreateTaskInput) (*model.Task, error) {
	in.Title = strings.TrimSpace(in.Title)

	verr := &apperrors.ValidationError{}
	if in.Title == "" {
		verr.Add("title", "Task title is required")
	}
	if in.ProjectID == uuid.Nil {
		verr.Add("project", "Project is required")
	}
	validateTaskEnums(verr, &in.Status, &in.Priority)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	project, err := s.projects.FindByID(ctx, in.ProjectID)
	if err != nil {
		return nil, notFound(err, apperrors.ErrProjectNotFound, "find project")
	}
	if !policy.CanCreateTaskInProject(project, userID) {
		return nil, apperrors.ErrForbidden
	}

	task := &model.Task{
		ID:          uuid.New(),
		Title:       in.Title,
		Description: in.Description,
		ProjectID:   in.ProjectID,
		AssignedTo:  in.AssignedTo,
		CreatedBy:   userID,
		Status:      in.Status,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Tags:        in.Tags,
		Subtasks:    []model.Subtask{},
		Attachments: []model.Attachment{},
	}
	if task.Status == "" {
		task.Status = model.TaskStatusTodo
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
	if in.EstimatedHours != nil {
		task.EstimatedHours = decimal.NewNullDecimal(*in.EstimatedHours)
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	created, err := s.load(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, realtime.TaskCreated, realtime.ProjectChannel(created.ProjectID), TaskPayload{Task: created})
	return created, nil
}

// Get returns a task if the caller can read its project.
func (s *taskService) Get(ctx context.Context, id, userID uuid.UUID) (*model.Task, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	project, err := s.projects.FindByID(ctx, task.ProjectID)
	if err != nil {
		return nil, notFound(err, apperrors.ErrProjectNotFound, "find project")
	}
	if !policy.CanReadProject(project, userID) {
		return nil, apperrors.ErrForbidden
	}
	return task, nil
}

func (s *taskService) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Update merges the patch. Existence is the only gate.
func (s *taskService) Update(ctx context.Context, id uuid.UUID, patch model.TaskPatch) (*model.Task, error) {
	verr := &apperrors.ValidationError{}
	validateTaskEnums(verr, patch.Status, patch.Priority)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.ApplyTo(task)
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.publisher.Publish(ctx, realtime.TaskUpdated, realtime.ProjectChannel(task.ProjectID), TaskPayload{Task: task})
	return task, nil
}

// AddComment appends a comment. Any authenticated caller may comment.
func (s *taskService) AddComment(ctx context.Context, id, userID uuid.UUID, text string) (*model.Task, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.Invalid("text", "Comment text is required")
	}

	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	comment := &model.TaskComment{
		ID:     uuid.New(),
		TaskID: task.ID,
		UserID: userID,
		Text:   text,
	}
	if err := s.tasks.AddComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}

	updated, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, realtime.CommentAdded, realtime.ProjectChannel(updated.ProjectID), TaskPayload{Task: updated})
	return updated, nil
}

// Delete removes a task. Allowed for its creator and the project owner.
func (s *taskService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	task, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	project, err := s.projects.FindByID(ctx, task.ProjectID)
	if err != nil {
		return notFound(err, apperrors.ErrProjectNotFound, "find project")
	}
	if !policy.CanDeleteTask(task, project, userID) {
		return apperrors.ErrForbidden
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	s.publisher.Publish(ctx, realtime.TaskDeleted, realtime.ProjectChannel(task.ProjectID), TaskDeletedPayload{TaskID: id})
	return nil
}

func (s *taskService) load(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, apperrors.ErrTaskNotFound, "find task")
	}
	return task, nil
}
