package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskhub/internal/model"
)

// ProjectRepository defines project and membership persistence operations.
type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	Update(ctx context.Context, project *model.Project) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Project, error)
	ListForUser(ctx context.Context, userID uuid.UUID, filter model.ProjectFilter) ([]model.Project, error)
	AddMember(ctx context.Context, member *model.ProjectMember) error
	RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error
	// DeleteWithTasks removes the project, its memberships, its tasks and their
	// comments in one transaction.
	DeleteWithTasks(ctx context.Context, projectID uuid.UUID) error
}

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func withProjectPreloads(db *gorm.DB) *gorm.DB {
	return db.Preload("Owner").Preload("Members.User")
}

// Create inserts the project together with its initial members.
func (r *projectRepository) Create(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// Update writes the whole project row. Members are managed separately.
func (r *projectRepository) Update(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(project).Error
}

// FindByID loads a project with owner and members.
func (r *projectRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	if err := withProjectPreloads(r.db.WithContext(ctx)).Where("id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// ListForUser returns projects userID owns or belongs to, most recently updated first.
func (r *projectRepository) ListForUser(ctx context.Context, userID uuid.UUID, filter model.ProjectFilter) ([]model.Project, error) {
	db := r.db.WithContext(ctx)
	memberOf := db.Model(&model.ProjectMember{}).Select("project_id").Where("user_id = ?", userID)

	q := db.Where("owner_id = ? OR id IN (?)", userID, memberOf)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		q = q.Where("LOWER(name) LIKE ?", containsPattern(filter.Search))
	}

	var projects []model.Project
	if err := withProjectPreloads(q).Order("updated_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// AddMember inserts a membership row. A second row for the same user fails
// with gorm.ErrDuplicatedKey.
func (r *projectRepository) AddMember(ctx context.Context, member *model.ProjectMember) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		return touch(tx, member.ProjectID)
	})
}

// RemoveMember deletes a membership row. Removing a non-member is a no-op.
func (r *projectRepository) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("project_id = ? AND user_id = ?", projectID, userID).Delete(&model.ProjectMember{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return touch(tx, projectID)
	})
}

// DeleteWithTasks deletes children before parents.
func (r *projectRepository) DeleteWithTasks(ctx context.Context, projectID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taskIDs := tx.Model(&model.Task{}).Select("id").Where("project_id = ?", projectID)
		if err := tx.Where("task_id IN (?)", taskIDs).Delete(&model.TaskComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&model.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&model.ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", projectID).Delete(&model.Project{}).Error
	})
}

// touch bumps updated_at so membership changes reorder project listings.
func touch(tx *gorm.DB, projectID uuid.UUID) error {
	return tx.Model(&model.Project{}).Where("id = ?", projectID).Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP(3)")).Error
}
