package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProjectStatus represents the lifecycle stage of a project.
type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on-hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusArchived  ProjectStatus = "archived"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusOnHold, ProjectStatusCompleted, ProjectStatusArchived:
		return true
	}
	return false
}

// Priority is shared by projects and tasks.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Role is a user's standing within one project.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// Assignable reports whether r may be granted through the add-member path.
// The owner role is fixed at creation.
func (r Role) Assignable() bool {
	switch r {
	case RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// DefaultProjectColor is the display colour for projects created without one.
const DefaultProjectColor = "#3B82F6"

// Project is the aggregate root for membership and project metadata.
type Project struct {
	ID          uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	Name        string          `json:"name" gorm:"size:100;not null"`
	Description string          `json:"description" gorm:"size:1000;not null"`
	OwnerID     uuid.UUID       `json:"ownerId" gorm:"type:char(36);not null;index:idx_owner_status"`
	Owner       *User           `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Members     []ProjectMember `json:"members" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	Status      ProjectStatus   `json:"status" gorm:"type:varchar(20);not null;default:'planning';index:idx_owner_status"`
	Priority    Priority        `json:"priority" gorm:"type:varchar(20);not null;default:'medium'"`
	StartDate   time.Time       `json:"startDate"`
	DueDate     *time.Time      `json:"dueDate,omitempty"`
	Tags        []string        `json:"tags" gorm:"type:json;serializer:json"`
	Color       string          `json:"color" gorm:"size:20;default:'#3B82F6'"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsOwner reports whether userID owns the project.
func (p *Project) IsOwner(userID uuid.UUID) bool {
	return p.OwnerID == userID
}

// MemberRole returns userID's membership role, if any.
func (p *Project) MemberRole(userID uuid.UUID) (Role, bool) {
	for _, m := range p.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

// ProjectMember links a user to a project with a role. The composite primary
// key keeps one membership per (project, user).
type ProjectMember struct {
	ProjectID uuid.UUID `json:"-" gorm:"type:char(36);primaryKey"`
	UserID    uuid.UUID `json:"userId" gorm:"type:char(36);primaryKey;index"`
	User      *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Role      Role      `json:"role" gorm:"type:varchar(20);not null;default:'member'"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// ProjectFilter narrows ListForUser.
type ProjectFilter struct {
	Status ProjectStatus
	Search string
}

// ProjectPatch is a partial project update. A field is applied only when it is
// non-nil and non-empty, so this path cannot clear a field.
type ProjectPatch struct {
	Name        *string
	Description *string
	Status      *ProjectStatus
	Priority    *Priority
	DueDate     *time.Time
	Tags        []string
	Color       *string
}

// ApplyTo merges the patch into p.
func (patch ProjectPatch) ApplyTo(p *Project) {
	if patch.Name != nil && *patch.Name != "" {
		p.Name = *patch.Name
	}
	if patch.Description != nil && *patch.Description != "" {
		p.Description = *patch.Description
	}
	if patch.Status != nil && *patch.Status != "" {
		p.Status = *patch.Status
	}
	if patch.Priority != nil && *patch.Priority != "" {
		p.Priority = *patch.Priority
	}
	if patch.DueDate != nil {
		p.DueDate = patch.DueDate
	}
	if patch.Tags != nil {
		p.Tags = patch.Tags
	}
	if patch.Color != nil && *patch.Color != "" {
		p.Color = *patch.Color
	}
}

// TaskStats counts a project's tasks by status.
type TaskStats struct {
	Total      int `json:"total"`
	Todo       int `json:"todo"`
	InProgress int `json:"inProgress"`
	Review     int `json:"review"`
	Completed  int `json:"completed"`
}

// NewTaskStats folds per-status counts into TaskStats.
func NewTaskStats(counts map[TaskStatus]int) TaskStats {
	stats := TaskStats{
		Todo:       counts[TaskStatusTodo],
		InProgress: counts[TaskStatusInProgress],
		Review:     counts[TaskStatusReview],
		Completed:  counts[TaskStatusCompleted],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats
}
