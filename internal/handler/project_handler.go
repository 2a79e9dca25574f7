package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"taskhub/internal/auth"
	apperrors "taskhub/internal/errors"
	"taskhub/internal/model"
	"taskhub/internal/service"
)

// ProjectHandler handles project and membership endpoints.
type ProjectHandler struct {
	projectService service.ProjectService
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(projectService service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// CreateProjectRequest represents a new project.
type CreateProjectRequest struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"required,max=1000"`
	Status      string   `json:"status" validate:"omitempty,oneof=planning active on-hold completed archived"`
	Priority    string   `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	StartDate   string   `json:"startDate"`
	DueDate     string   `json:"dueDate"`
	Tags        []string `json:"tags"`
	Color       string   `json:"color" validate:"max=20"`
}

// UpdateProjectRequest is a partial update. Absent or empty fields are left unchanged.
type UpdateProjectRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=100"`
	Description *string  `json:"description" validate:"omitempty,max=1000"`
	Status      *string  `json:"status"`
	Priority    *string  `json:"priority"`
	DueDate     *string  `json:"dueDate"`
	Tags        []string `json:"tags"`
	Color       *string  `json:"color" validate:"omitempty,max=20"`
}

// AddMemberRequest grants a user a role in the project.
type AddMemberRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
	Role   string `json:"role" validate:"omitempty,oneof=admin member viewer"`
}

// List godoc
// @Summary List the caller's projects
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param status query string false "Project status"
// @Param search query string false "Name substring"
// @Success 200 {object} Response
// @Router /projects [get]
func (h *ProjectHandler) List(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	filter := model.ProjectFilter{
		Status: model.ProjectStatus(c.QueryParam("status")),
		Search: c.QueryParam("search"),
	}
	projects, err := h.projectService.ListForUser(c.Request().Context(), userID, filter)
	if err != nil {
		return apperrors.Wrap(err, "Failed to fetch projects")
	}
	if projects == nil {
		projects = []model.Project{}
	}
	return respond(c, http.StatusOK, echo.Map{"projects": projects})
}

// Get godoc
// @Summary Get a project with task statistics
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID"
// @Success 200 {object} Response{data=service.ProjectDetail}
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /projects/{id} [get]
func (h *ProjectHandler) Get(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	detail, err := h.projectService.Get(c.Request().Context(), id, userID)
	if err != nil {
		return apperrors.Wrap(err, "Failed to fetch project")
	}
	return respond(c, http.StatusOK, detail)
}

// Create godoc
// @Summary Create a project
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateProjectRequest true "Project"
// @Success 201 {object} Response
// @Failure 400 {object} Response
// @Router /projects [post]
func (h *ProjectHandler) Create(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req CreateProjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	in := service.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      model.ProjectStatus(req.Status),
		Priority:    model.Priority(req.Priority),
		Tags:        req.Tags,
		Color:       req.Color,
	}
	if in.StartDate, err = parseOptionalDate("startDate", req.StartDate); err != nil {
		return err
	}
	if in.DueDate, err = parseOptionalDate("dueDate", req.DueDate); err != nil {
		return err
	}

	project, err := h.projectService.Create(c.Request().Context(), userID, in)
	if err != nil {
		return apperrors.Wrap(err, "Failed to create project")
	}
	return respond(c, http.StatusCreated, echo.Map{"project": project})
}

// Update godoc
// @Summary Update a project
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID"
// @Param request body UpdateProjectRequest true "Changed fields"
// @Success 200 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /projects/{id} [put]
func (h *ProjectHandler) Update(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req UpdateProjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	patch := model.ProjectPatch{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		Color:       req.Color,
	}
	if req.Status != nil {
		status := model.ProjectStatus(*req.Status)
		patch.Status = &status
	}
	if req.Priority != nil {
		priority := model.Priority(*req.Priority)
		patch.Priority = &priority
	}
	if req.DueDate != nil {
		if patch.DueDate, err = parseOptionalDate("dueDate", *req.DueDate); err != nil {
			return err
		}
	}

	project, err := h.projectService.Update(c.Request().Context(), id, userID, patch)
	if err != nil {
		return apperrors.Wrap(err, "Failed to update project")
	}
	return respond(c, http.StatusOK, echo.Map{"project": project})
}

// AddMember godoc
// @Summary Add a member
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID"
// @Param request body AddMemberRequest true "Member"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /projects/{id}/members [post]
func (h *ProjectHandler) AddMember(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req AddMemberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	memberID, err := parseOptionalUUID("userId", req.UserID)
	if err != nil {
		return err
	}

	project, err := h.projectService.AddMember(c.Request().Context(), id, userID, *memberID, model.Role(req.Role))
	if err != nil {
		return apperrors.Wrap(err, "Failed to add member")
	}
	return respond(c, http.StatusOK, echo.Map{"project": project})
}

// RemoveMember godoc
// @Summary Remove a member
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID"
// @Param userId path string true "User ID"
// @Success 200 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /projects/{id}/members/{userId} [delete]
func (h *ProjectHandler) RemoveMember(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	memberID, err := pathID(c, "userId")
	if err != nil {
		return err
	}

	project, err := h.projectService.RemoveMember(c.Request().Context(), id, userID, memberID)
	if err != nil {
		return apperrors.Wrap(err, "Failed to remove member")
	}
	return respond(c, http.StatusOK, echo.Map{"project": project})
}

// Delete godoc
// @Summary Delete a project and its tasks
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID"
// @Success 200 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /projects/{id} [delete]
func (h *ProjectHandler) Delete(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.projectService.Delete(c.Request().Context(), id, userID); err != nil {
		return apperrors.Wrap(err, "Failed to delete project")
	}
	return respondMessage(c, http.StatusOK, "Project deleted successfully")
}

// Tasks godoc
// @Summary List a project's tasks
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID"
// @Success 200 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Router /projects/{id}/tasks [get]
func (h *ProjectHandler) Tasks(c echo.Context) error {
	userID, err := auth.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	tasks, err := h.projectService.Tasks(c.Request().Context(), id, userID)
	if err != nil {
		return apperrors.Wrap(err, "Failed to fetch tasks")
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return respond(c, http.StatusOK, echo.Map{"tasks": tasks})
}
