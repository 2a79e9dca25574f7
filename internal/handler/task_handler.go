package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"taskhub/internal/auth"
	apperrors "taskhub/internal/errors"
	"taskhub/internal/model"
	"taskhub/internal/service"
)

// TaskHandler handles task and comment endpoints.
type TaskHandler struct {
	taskService service.TaskService
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(taskService service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// CreateTaskRequest represents a new task.
type CreateTaskRequest struct {
	Title          string           `json:"title" validate:"required,max=200"`
	Description    string           `json:"description"`
	Project        string           `json:"project" validate:"required,uuid"`
	AssignedTo     string           `json:"assignedTo" validate:"omitempty,uuid"`
	Status         string           `json:"status" validate:"omitempty,oneof=todo in-progress review completed"`
	Priority       string           `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	DueDate        string           `json:"dueDate"`
	Tags           []string         `json:"tags"`
	EstimatedHours *decimal.Decimal `json:"estimatedHours"`
}

// UpdateTaskRequest is a partial update. Description, assignedTo, dueDate and
// the hour fields may be sent as null (or "") to clear them.
type UpdateTaskRequest struct {
	Title          *string                         `json:"title" validate:"omitempty,max=200"`
	Description    model.Optional[string]          `json:"description" swaggertype:"string"`
	Status         *string                         `json:"status"`
	Priority       *string                         `json:"priority"`
	AssignedTo     model.Optional[string]          `json:"assignedTo" swaggertype:"string"`
	DueDate        model.Optional[string]          `json:"dueDate" swaggertype:"string"`
	Tags           []string                        `json:"tags"`
	EstimatedHours model.Optional[decimal.Decimal] `json:"estimatedHours" swaggertype:"number"`
	ActualHours    model.Optional[decimal.Decimal] `json:"actualHours" swaggertype:"number"`
}

// CommentRequest represents a new comment.
type CommentRequest struct {
	Text string `json:"text" validate:"required"`
}

// List godoc
// @Summary List tasks across projects
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param project query string false "Project ID"
// @Param status query string false "Task status"
// @Param assignedTo query string false "Assignee ID"
// @Param priority query string false "Priority"
// @Param search query string false "Title or description substring"
// @Success 200 {object} Response
// @Router /tasks [get]
func (h *TaskHandler) List(c echo.Context) error {
	filter := model.TaskFilter{
		Status:   model.TaskStatus(c.QueryParam("status")),
		Priority: model.Priority(c.QueryParam("priority")),
		Search:   c.QueryParam("search"),
	}

	var err error
	if filter.ProjectID, err = parseOptionalUUID("project", c.QueryParam("project")); err != nil {
		return err
	}
	if filter.AssignedTo, err = parseOptionalUUID("assignedTo", c.QueryParam("assignedTo")); err != nil {
		return err
	}

	tasks, err := h.taskService.List(c.Request().Context(), filter)
	if err != nil {
		return apperrors.Wrap(err, "Failed to fetch tasks")
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return respond(c, http.StatusOK, echo.Map{"tasks": tasks})
}

// Get godoc
// @Summary Get a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /tasks/{id} [get]
func (h *TaskHandler) Get(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	task, err := h.taskService.Get(c.Request().Context(), id, userID)
	if err != nil {
		return apperrors.Wrap(err, "Failed to fetch task")
	}
	return respond(c, http.StatusOK, echo.Map{"task": task})
}

// Create godoc
// @Summary Create a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateTaskRequest true "Task"
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req CreateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	in := service.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Status:         model.TaskStatus(req.Status),
		Priority:       model.Priority(req.Priority),
		Tags:           req.Tags,
		EstimatedHours: req.EstimatedHours,
	}
	projectID, err := parseOptionalUUID("project", req.Project)
	if err != nil {
		return err
	}
	in.ProjectID = *projectID
	if in.AssignedTo, err = parseOptionalUUID("assignedTo", req.AssignedTo); err != nil {
		return err
	}
	if in.DueDate, err = parseOptionalDate("dueDate", req.DueDate); err != nil {
		return err
	}

	task, err := h.taskService.Create(c.Request().Context(), userID, in)
	if err != nil {
		return apperrors.Wrap(err, "Failed to create task")
	}
	return respond(c, http.StatusCreated, echo.Map{"task": task})
}

// Update godoc
// @Summary Update a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param request body UpdateTaskRequest true "Changed fields"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /tasks/{id} [put]
func (h *TaskHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req UpdateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	patch := model.TaskPatch{
		Title:          req.Title,
		Description:    req.Description,
		Tags:           req.Tags,
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
	}
	if req.Status != nil {
		status := model.TaskStatus(*req.Status)
		patch.Status = &status
	}
	if req.Priority != nil {
		priority := model.Priority(*req.Priority)
		patch.Priority = &priority
	}
	if patch.AssignedTo, err = clearableUUID("assignedTo", req.AssignedTo); err != nil {
		return err
	}
	if patch.DueDate, err = clearableDate("dueDate", req.DueDate); err != nil {
		return err
	}

	task, err := h.taskService.Update(c.Request().Context(), id, patch)
	if err != nil {
		return apperrors.Wrap(err, "Failed to update task")
	}
	return respond(c, http.StatusOK, echo.Map{"task": task})
}

// AddComment godoc
// @Summary Comment on a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param request body CommentRequest true "Comment"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /tasks/{id}/comments [post]
func (h *TaskHandler) AddComment(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req CommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.AddComment(c.Request().Context(), id, userID, req.Text)
	if err != nil {
		return apperrors.Wrap(err, "Failed to add comment")
	}
	return respond(c, http.StatusOK, echo.Map{"task": task})
}

// Delete godoc
// @Summary Delete a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.taskService.Delete(c.Request().Context(), id, userID); err != nil {
		return apperrors.Wrap(err, "Failed to delete task")
	}
	return respondMessage(c, http.StatusOK, "Task deleted successfully")
}
