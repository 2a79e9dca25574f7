package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "taskhub/internal/errors"
	"taskhub/internal/model"
	"taskhub/internal/policy"
	"taskhub/internal/realtime"
	"taskhub/internal/repository"
)

// CreateProjectInput carries the fields accepted on project creation.
type CreateProjectInput struct {
	Name        string
	Description string
	Status      model.ProjectStatus
	Priority    model.Priority
	StartDate   *time.Time
	DueDate     *time.Time
	Tags        []string
	Color       string
}

// ProjectDetail is a project together with its derived task counts.
type ProjectDetail struct {
	Project   *model.Project  `json:"project"`
	TaskStats model.TaskStats `json:"taskStats"`
}

// ProjectPayload is the realtime payload for project-level changes.
type ProjectPayload struct {
	Project *model.Project `json:"project"`
}

// ProjectDeletedPayload is the realtime payload for project-deleted.
type ProjectDeletedPayload struct {
	ProjectID uuid.UUID `json:"projectId"`
}

// ProjectService governs project state and membership.
type ProjectService interface {
	Create(ctx context.Context, ownerID uuid.UUID, in CreateProjectInput) (*model.Project, error)
	Get(ctx context.Context, id, userID uuid.UUID) (*ProjectDetail, error)
	ListForUser(ctx context.Context, userID uuid.UUID, filter model.ProjectFilter) ([]model.Project, error)
	Update(ctx context.Context, id, userID uuid.UUID, patch model.ProjectPatch) (*model.Project, error)
	AddMember(ctx context.Context, id, actorID, memberID uuid.UUID, role model.Role) (*model.Project, error)
	RemoveMember(ctx context.Context, id, actorID, memberID uuid.UUID) (*model.Project, error)
	Delete(ctx context.Context, id, actorID uuid.UUID) error
	Tasks(ctx context.Context, id, userID uuid.UUID) ([]model.Task, error)
}

type projectService struct {
	projects  repository.ProjectRepository
	tasks     repository.TaskRepository
	users     repository.UserRepository
	publisher realtime.Publisher
	now       func() time.Time
}

// NewProjectService wires the project aggregate. A nil publisher discards events.
func NewProjectService(projects repository.ProjectRepository, tasks repository.TaskRepository, users repository.UserRepository, publisher realtime.Publisher) ProjectService {
	if publisher == nil {
		publisher = realtime.Discard{}
	}
	return &projectService{
		projects:  projects,
		tasks:     tasks,
		users:     users,
		publisher: publisher,
		now:       time.Now,
	}
}

func validateProjectEnums(verr *apperrors.ValidationError, status *model.ProjectStatus, priority *model.Priority) {
	if status != nil && *status != "" && !status.Valid() {
		verr.Add("status", "Invalid project status")
	}
	if priority != nil && *priority != "" && !priority.Valid() {
		verr.Add("priority", "Invalid priority")
	}
}

// Create persists a new project. The creator becomes owner and first member.
func (s *projectService) Create(ctx context.Context, ownerID uuid.UUID, in CreateProjectInput) (*model.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	verr := &apperrors.ValidationError{}
	if in.Name == "" {
		verr.Add("name", "Project name is required")
	}
	if in.Description == "" {
		verr.Add("description", "Project description is required")
	}
	validateProjectEnums(verr, &in.Status, &in.Priority)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	now := s.now()
	project := &model.Project{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		OwnerID:     ownerID,
		Status:      in.Status,
		Priority:    in.Priority,
		StartDate:   now,
		DueDate:     in.DueDate,
		Tags:        in.Tags,
		Color:       in.Color,
	}
	if project.Status == "" {
		project.Status = model.ProjectStatusPlanning
	}
	if project.Priority == "" {
		project.Priority = model.PriorityMedium
	}
	if in.StartDate != nil {
		project.StartDate = *in.StartDate
	}
	if project.Tags == nil {
		project.Tags = []string{}
	}
	if project.Color == "" {
		project.Color = model.DefaultProjectColor
	}
	project.Members = []model.ProjectMember{{
		ProjectID: project.ID,
		UserID:    ownerID,
		Role:      model.RoleOwner,
		JoinedAt:  now,
	}}

	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	created, err := s.load(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, realtime.ProjectCreated, realtime.Broadcast, ProjectPayload{Project: created})
	return created, nil
}

// Get returns a readable project with task counts recomputed on every call.
func (s *projectService) Get(ctx context.Context, id, userID uuid.UUID) (*ProjectDetail, error) {
	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanReadProject(project, userID) {
		return nil, apperrors.ErrForbidden
	}

	counts, err := s.tasks.CountByStatus(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	return &ProjectDetail{Project: project, TaskStats: model.NewTaskStats(counts)}, nil
}

func (s *projectService) ListForUser(ctx context.Context, userID uuid.UUID, filter model.ProjectFilter) ([]model.Project, error) {
	projects, err := s.projects.ListForUser(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// Update merges the patch. Only the owner and admins may edit.
func (s *projectService) Update(ctx context.Context, id, userID uuid.UUID, patch model.ProjectPatch) (*model.Project, error) {
	verr := &apperrors.ValidationError{}
	validateProjectEnums(verr, patch.Status, patch.Priority)
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanWriteProject(project, userID) {
		return nil, apperrors.ErrForbidden
	}

	patch.ApplyTo(project)
	if err := s.projects.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}

	s.publisher.Publish(ctx, realtime.ProjectUpdated, realtime.ProjectChannel(id), ProjectPayload{Project: project})
	return project, nil
}

// AddMember grants memberID a role. An empty role means member.
func (s *projectService) AddMember(ctx context.Context, id, actorID, memberID uuid.UUID, role model.Role) (*model.Project, error) {
	if role == "" {
		role = model.RoleMember
	}
	if !role.Assignable() {
		return nil, apperrors.Invalid("role", "Role must be one of admin, member, viewer")
	}

	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageMembers(project, actorID) {
		return nil, apperrors.ErrForbidden
	}
	if _, ok := project.MemberRole(memberID); ok || project.IsOwner(memberID) {
		return nil, apperrors.ErrAlreadyMember
	}
	if _, err := s.users.FindByID(ctx, memberID); err != nil {
		return nil, notFound(err, apperrors.ErrUserNotFound, "find user")
	}

	member := &model.ProjectMember{
		ProjectID: id,
		UserID:    memberID,
		Role:      role,
		JoinedAt:  s.now(),
	}
	if err := s.projects.AddMember(ctx, member); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrAlreadyMember
		}
		return nil, fmt.Errorf("add member: %w", err)
	}

	updated, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ctx, realtime.MemberAdded, realtime.ProjectChannel(id), ProjectPayload{Project: updated})
	return updated, nil
}

// RemoveMember is owner-only. Removing a non-member, or the owner, changes nothing.
func (s *projectService) RemoveMember(ctx context.Context, id, actorID, memberID uuid.UUID) (*model.Project, error) {
	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanRemoveMembers(project, actorID) {
		return nil, apperrors.ErrForbidden
	}

	if !project.IsOwner(memberID) {
		if err := s.projects.RemoveMember(ctx, id, memberID); err != nil {
			return nil, fmt.Errorf("remove member: %w", err)
		}
		if project, err = s.load(ctx, id); err != nil {
			return nil, err
		}
	}

	s.publisher.Publish(ctx, realtime.MemberRemoved, realtime.ProjectChannel(id), ProjectPayload{Project: project})
	return project, nil
}

// Delete is owner-only and takes the project's tasks with it.
func (s *projectService) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	project, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDeleteProject(project, actorID) {
		return apperrors.ErrForbidden
	}

	if err := s.projects.DeleteWithTasks(ctx, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	s.publisher.Publish(ctx, realtime.ProjectDeleted, realtime.Broadcast, ProjectDeletedPayload{ProjectID: id})
	return nil
}

// Tasks lists a readable project's tasks.
func (s *projectService) Tasks(ctx context.Context, id, userID uuid.UUID) ([]model.Task, error) {
	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanReadProject(project, userID) {
		return nil, apperrors.ErrForbidden
	}

	tasks, err := s.tasks.FindByProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list project tasks: %w", err)
	}
	return tasks, nil
}

func (s *projectService) load(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, apperrors.ErrProjectNotFound, "find project")
	}
	return project, nil
}
