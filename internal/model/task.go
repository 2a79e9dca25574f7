package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaskStatus represents where a task sits on the board.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusReview, TaskStatusCompleted:
		return true
	}
	return false
}

// Subtask is a checklist item. Stored with the task, not mutated by task operations.
type Subtask struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Attachment references an uploaded file.
type Attachment struct {
	Filename   string    `json:"filename"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Task belongs to exactly one project; ProjectID and CreatedBy never change.
type Task struct {
	ID             uuid.UUID           `json:"id" gorm:"type:char(36);primaryKey"`
	Title          string              `json:"title" gorm:"size:200;not null"`
	Description    string              `json:"description" gorm:"type:text"`
	ProjectID      uuid.UUID           `json:"projectId" gorm:"type:char(36);not null;index:idx_project_status"`
	AssignedTo     *uuid.UUID          `json:"assignedTo" gorm:"type:char(36);index"`
	CreatedBy      uuid.UUID           `json:"createdBy" gorm:"type:char(36);not null"`
	Status         TaskStatus          `json:"status" gorm:"type:varchar(20);not null;default:'todo';index:idx_project_status"`
	Priority       Priority            `json:"priority" gorm:"type:varchar(20);not null;default:'medium'"`
	DueDate        *time.Time          `json:"dueDate"`
	Tags           []string            `json:"tags" gorm:"type:json;serializer:json"`
	EstimatedHours decimal.NullDecimal `json:"estimatedHours" gorm:"type:decimal(10,2)"`
	ActualHours    decimal.NullDecimal `json:"actualHours" gorm:"type:decimal(10,2)"`
	Subtasks       []Subtask           `json:"subtasks" gorm:"type:json;serializer:json"`
	Attachments    []Attachment        `json:"attachments" gorm:"type:json;serializer:json"`
	Comments       []TaskComment       `json:"comments" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TaskComment is one entry in a task's append-only comment log.
type TaskComment struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	TaskID    uuid.UUID `json:"-" gorm:"type:char(36);not null;index"`
	UserID    uuid.UUID `json:"userId" gorm:"type:char(36);not null"`
	User      *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// BeforeCreate sets UUID before creating the record.
func (c *TaskComment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// TaskFilter narrows the unscoped task listing. Zero values are ignored.
type TaskFilter struct {
	ProjectID  *uuid.UUID
	Status     TaskStatus
	AssignedTo *uuid.UUID
	Priority   Priority
	Search     string
}

// TaskPatch is a partial task update. Title, Status, Priority and Tags follow
// the project rule (non-empty to apply). Description, AssignedTo, DueDate and the
// hour fields apply whenever present, so null clears them.
type TaskPatch struct {
	Title          *string
	Description    Optional[string]
	Status         *TaskStatus
	Priority       *Priority
	AssignedTo     Optional[uuid.UUID]
	DueDate        Optional[time.Time]
	Tags           []string
	EstimatedHours Optional[decimal.Decimal]
	ActualHours    Optional[decimal.Decimal]
}

// ApplyTo merges the patch into t.
func (patch TaskPatch) ApplyTo(t *Task) {
	if patch.Title != nil && *patch.Title != "" {
		t.Title = *patch.Title
	}
	if patch.Description.Set {
		t.Description = ""
		if patch.Description.Value != nil {
			t.Description = *patch.Description.Value
		}
	}
	if patch.Status != nil && *patch.Status != "" {
		t.Status = *patch.Status
	}
	if patch.Priority != nil && *patch.Priority != "" {
		t.Priority = *patch.Priority
	}
	if patch.AssignedTo.Set {
		t.AssignedTo = patch.AssignedTo.Value
	}
	if patch.DueDate.Set {
		t.DueDate = patch.DueDate.Value
	}
	if patch.Tags != nil {
		t.Tags = patch.Tags
	}
	if patch.EstimatedHours.Set {
		t.EstimatedHours = nullDecimal(patch.EstimatedHours.Value)
	}
	if patch.ActualHours.Set {
		t.ActualHours = nullDecimal(patch.ActualHours.Value)
	}
}

func nullDecimal(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*v)
}
