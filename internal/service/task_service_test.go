package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "taskhub/internal/errors"
	"taskhub/internal/logger"
	"taskhub/internal/model"
	"taskhub/internal/realtime"
)

func TestTaskService_CreateRequiresMembership(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()
	owner, viewer, outsider := f.store.addUser("Owner"), f.store.addUser("Viewer"), f.store.addUser("Outsider")
	p := f.createProject(t, owner)
	f.addMember(t, p, owner, viewer, model.RoleViewer)

	task, err := f.tasks.Create(ctx, viewer, CreateTaskInput{ProjectID: p.ID, Title: "Write docs"})
	require.NoError(t, err)
	assert.Equal(t, viewer, task.CreatedBy)
	assert.Equal(t, model.TaskStatusTodo, task.Status)
	assert.Equal(t, model.PriorityMedium, task.Priority)

	ev := f.events.last()
	assert.Equal(t, realtime.TaskCreated, ev.Kind)
	assert.Equal(t, realtime.ProjectChannel(p.ID), ev.Channel)

	_, err = f.tasks.Create(ctx, outsider, CreateTaskInput{ProjectID: p.ID, Title: "Sneak in"})
	assert.Equal(t, apperrors.ErrForbidden, err)

	_, err = f.tasks.Create(ctx, owner, CreateTaskInput{ProjectID: uuid.New(), Title: "Nowhere"})
	assert.Equal(t, apperrors.ErrProjectNotFound, err)

	_, err = f.tasks.Create(ctx, owner, CreateTaskInput{ProjectID: p.ID, Title: "", Priority: "urgent"})
	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 2)
}

func TestTaskService_PartialUpdate(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()
	owner, dev := f.store.addUser("Owner"), f.store.addUser("Dev")
	p := f.createProject(t, owner)

	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	hours := decimal.RequireFromString("4.5")
	task, err := f.tasks.Create(ctx, owner, CreateTaskInput{
		ProjectID:      p.ID,
		Title:          "Ship",
		Description:    "Ship it",
		AssignedTo:     &dev,
		DueDate:        &due,
		Tags:           []string{"release"},
		EstimatedHours: &hours,
	})
	require.NoError(t, err)

	emptyTitle := ""
	review := model.TaskStatusReview
	updated, err := f.tasks.Update(ctx, task.ID, model.TaskPatch{
		Title:       &emptyTitle,
		Status:      &review,
		Description: model.Some(""),
		AssignedTo:  model.Null[uuid.UUID](),
	})
	require.NoError(t, err)

	assert.Equal(t, "Ship", updated.Title)
	assert.Equal(t, model.TaskStatusReview, updated.Status)
	assert.Equal(t, "", updated.Description)
	assert.Nil(t, updated.AssignedTo)
	require.NotNil(t, updated.DueDate)
	assert.True(t, due.Equal(*updated.DueDate))
	assert.Equal(t, []string{"release"}, updated.Tags)
	assert.True(t, updated.EstimatedHours.Valid)
	assert.True(t, hours.Equal(updated.EstimatedHours.Decimal))
	assert.Equal(t, task.CreatedBy, updated.CreatedBy)
	assert.Equal(t, task.ProjectID, updated.ProjectID)

	reloaded, err := f.tasks.Get(ctx, task.ID, owner)
	require.NoError(t, err)
	assert.Nil(t, reloaded.AssignedTo)
	assert.Equal(t, realtime.TaskUpdated, f.events.last().Kind)

	_, err = f.tasks.Update(ctx, uuid.New(), model.TaskPatch{})
	assert.Equal(t, apperrors.ErrTaskNotFound, err)
}

func TestTaskService_NonMemberMayComment(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()
	a, b := f.store.addUser("A"), f.store.addUser("B")
	p := f.createProject(t, a)
	task, err := f.tasks.Create(ctx, a, CreateTaskInput{ProjectID: p.ID, Title: "T"})
	require.NoError(t, err)

	updated, err := f.tasks.AddComment(ctx, task.ID, b, "drive-by feedback")
	require.NoError(t, err)
	require.Len(t, updated.Comments, 1)
	assert.Equal(t, b, updated.Comments[0].UserID)
	assert.Equal(t, "drive-by feedback", updated.Comments[0].Text)
	assert.False(t, updated.Comments[0].CreatedAt.IsZero())

	ev := f.events.last()
	assert.Equal(t, realtime.CommentAdded, ev.Kind)
	assert.Equal(t, realtime.ProjectChannel(p.ID), ev.Channel)

	second, err := f.tasks.AddComment(ctx, task.ID, a, "thanks")
	require.NoError(t, err)
	require.Len(t, second.Comments, 2)
	assert.Equal(t, "drive-by feedback", second.Comments[0].Text)
	assert.Equal(t, "thanks", second.Comments[1].Text)

	_, err = f.tasks.AddComment(ctx, task.ID, a, "   ")
	var verr *apperrors.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = f.tasks.AddComment(ctx, uuid.New(), a, "hello")
	assert.Equal(t, apperrors.ErrTaskNotFound, err)
}

func TestTaskService_GetRequiresReadAccess(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()
	owner, outsider := f.store.addUser("Owner"), f.store.addUser("Outsider")
	p := f.createProject(t, owner)
	task, err := f.tasks.Create(ctx, owner, CreateTaskInput{ProjectID: p.ID, Title: "secret"})
	require.NoError(t, err)

	_, err = f.tasks.Get(ctx, task.ID, outsider)
	assert.Equal(t, apperrors.ErrForbidden, err)

	// The unscoped listing is open to any caller.
	listed, err := f.tasks.List(ctx, model.TaskFilter{Search: "SECR"})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestTaskService_Delete(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()
	owner, creator, other := f.store.addUser("Owner"), f.store.addUser("Creator"), f.store.addUser("Other")
	p := f.createProject(t, owner)
	f.addMember(t, p, owner, creator, model.RoleMember)
	f.addMember(t, p, owner, other, model.RoleAdmin)

	t1, err := f.tasks.Create(ctx, creator, CreateTaskInput{ProjectID: p.ID, Title: "by creator"})
	require.NoError(t, err)
	t2, err := f.tasks.Create(ctx, creator, CreateTaskInput{ProjectID: p.ID, Title: "also by creator"})
	require.NoError(t, err)

	assert.Equal(t, apperrors.ErrForbidden, f.tasks.Delete(ctx, t1.ID, other))

	require.NoError(t, f.tasks.Delete(ctx, t1.ID, creator))
	assert.Equal(t, TaskDeletedPayload{TaskID: t1.ID}, f.events.last().Payload)

	require.NoError(t, f.tasks.Delete(ctx, t2.ID, owner))
	assert.Equal(t, apperrors.ErrTaskNotFound, f.tasks.Delete(ctx, t2.ID, owner))
}

func TestTaskService_ListFilters(t *testing.T) {
	f := newProjectFixture()
	ctx := context.Background()
	owner, dev := f.store.addUser("Owner"), f.store.addUser("Dev")
	p := f.createProject(t, owner)

	_, err := f.tasks.Create(ctx, owner, CreateTaskInput{ProjectID: p.ID, Title: "first", Priority: model.PriorityHigh})
	require.NoError(t, err)
	second, err := f.tasks.Create(ctx, owner, CreateTaskInput{ProjectID: p.ID, Title: "second", AssignedTo: &dev, Description: "needs review"})
	require.NoError(t, err)

	all, err := f.tasks.List(ctx, model.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	assigned, err := f.tasks.List(ctx, model.TaskFilter{AssignedTo: &dev})
	require.NoError(t, err)
	require.Len(t, assigned, 1)

	high, err := f.tasks.List(ctx, model.TaskFilter{Priority: model.PriorityHigh})
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, "first", high[0].Title)

	byDescription, err := f.tasks.List(ctx, model.TaskFilter{Search: "review"})
	require.NoError(t, err)
	require.Len(t, byDescription, 1)
	assert.Equal(t, second.ID, byDescription[0].ID)
}

func TestTaskService_EventsArriveInCreationOrder(t *testing.T) {
	store := newMemStore()
	hub := realtime.NewHub(8)
	dispatcher := realtime.NewDispatcher(hub, 16, logger.New("test", "off"))
	defer dispatcher.Close()

	projects := NewProjectService(memProjects{store}, memTasks{store}, memUsers{store}, dispatcher)
	tasks := NewTaskService(memTasks{store}, memProjects{store}, dispatcher)

	ctx := context.Background()
	owner := store.addUser("Owner")
	p, err := projects.Create(ctx, owner, CreateProjectInput{Name: "P", Description: "d"})
	require.NoError(t, err)

	sub := hub.Subscribe(realtime.ProjectChannel(p.ID))
	defer sub.Close()

	t1, err := tasks.Create(ctx, owner, CreateTaskInput{ProjectID: p.ID, Title: "T1"})
	require.NoError(t, err)
	t2, err := tasks.Create(ctx, owner, CreateTaskInput{ProjectID: p.ID, Title: "T2"})
	require.NoError(t, err)

	var got []string
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case ev := <-sub.Events():
			// The project-created broadcast may land on this subscription too.
			if ev.Kind != realtime.TaskCreated {
				continue
			}
			got = append(got, string(ev.Payload))
		case <-timeout:
			t.Fatal("timed out waiting for task-created")
		}
	}
	assert.Contains(t, got[0], t1.ID.String())
	assert.Contains(t, got[1], t2.ID.String())
}
