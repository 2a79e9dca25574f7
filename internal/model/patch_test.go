package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestProjectPatch_EmptyValuesDoNotClear(t *testing.T) {
	due := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	p := &Project{
		Name:        "Apollo",
		Description: "moon",
		Status:      ProjectStatusPlanning,
		Color:       "#fff",
		DueDate:     &due,
		Tags:        []string{"a"},
	}

	empty := ""
	ProjectPatch{Name: &empty, Description: &empty, Color: &empty}.ApplyTo(p)

	assert.Equal(t, "Apollo", p.Name)
	assert.Equal(t, "moon", p.Description)
	assert.Equal(t, "#fff", p.Color)
	assert.Equal(t, &due, p.DueDate)
	assert.Equal(t, []string{"a"}, p.Tags)
}

func TestProjectPatch_AppliesPresentFields(t *testing.T) {
	p := &Project{Name: "Apollo", Status: ProjectStatusPlanning, Tags: []string{"a"}}
	active := ProjectStatusActive

	ProjectPatch{Status: &active, Tags: []string{}}.ApplyTo(p)

	assert.Equal(t, "Apollo", p.Name)
	assert.Equal(t, ProjectStatusActive, p.Status)
	assert.Empty(t, p.Tags)
}

func TestTaskPatch_StatusOnlyLeavesOthers(t *testing.T) {
	assignee := uuid.New()
	task := &Task{Title: "Write", Description: "docs", AssignedTo: &assignee, Status: TaskStatusTodo}
	review := TaskStatusReview

	TaskPatch{Status: &review}.ApplyTo(task)

	assert.Equal(t, TaskStatusReview, task.Status)
	assert.Equal(t, "Write", task.Title)
	assert.Equal(t, "docs", task.Description)
	assert.Equal(t, &assignee, task.AssignedTo)
}

func TestTaskPatch_NullClearsDefinedFields(t *testing.T) {
	assignee := uuid.New()
	due := time.Now()
	task := &Task{
		Title:          "Write",
		Description:    "docs",
		AssignedTo:     &assignee,
		DueDate:        &due,
		EstimatedHours: decimal.NewNullDecimal(decimal.NewFromInt(3)),
	}

	TaskPatch{
		Title:          strPtr(""),
		Description:    Null[string](),
		AssignedTo:     Null[uuid.UUID](),
		DueDate:        Null[time.Time](),
		EstimatedHours: Null[decimal.Decimal](),
	}.ApplyTo(task)

	assert.Equal(t, "Write", task.Title)
	assert.Equal(t, "", task.Description)
	assert.Nil(t, task.AssignedTo)
	assert.Nil(t, task.DueDate)
	assert.False(t, task.EstimatedHours.Valid)
}

func TestTaskPatch_SetsHours(t *testing.T) {
	task := &Task{}
	TaskPatch{ActualHours: Some(decimal.RequireFromString("1.5"))}.ApplyTo(task)

	assert.True(t, task.ActualHours.Valid)
	assert.True(t, task.ActualHours.Decimal.Equal(decimal.RequireFromString("1.5")))
}

func TestNewTaskStats(t *testing.T) {
	stats := NewTaskStats(map[TaskStatus]int{
		TaskStatusTodo:      2,
		TaskStatusReview:    1,
		TaskStatusCompleted: 4,
	})

	assert.Equal(t, TaskStats{Total: 7, Todo: 2, Review: 1, Completed: 4}, stats)
}

func TestRoleAssignable(t *testing.T) {
	assert.False(t, RoleOwner.Assignable())
	assert.True(t, RoleAdmin.Assignable())
	assert.True(t, RoleMember.Assignable())
	assert.True(t, RoleViewer.Assignable())
	assert.False(t, Role("superuser").Assignable())
}
