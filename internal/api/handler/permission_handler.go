package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/azisaba/azisaba-commander-api/internal/api/middleware"
	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
)

// PermissionHandler serves the admin-only permission CRUD routes.
type PermissionHandler struct {
	permissions ports.PermissionService
}

func NewPermissionHandler(permissions ports.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissions: permissions}
}

type permissionContentInput struct {
	Project string `json:"project" validate:"required"`
	Service string `json:"service" validate:"required"`
}

type createPermissionRequest struct {
	Name    string                   `json:"name" validate:"required"`
	Content []permissionContentInput `json:"content" validate:"required,min=1,dive"`
}

type updatePermissionRequest struct {
	ID      int64                    `json:"id" validate:"required,gt=0"`
	Name    string                   `json:"name" validate:"required"`
	Content []permissionContentInput `json:"content" validate:"required,min=1,dive"`
}

// List returns every permission definition.
func (h *PermissionHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"message":     "ok",
		"permissions": h.permissions.All(),
	})
}

// Get returns one permission definition.
func (h *PermissionHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	permission, ok := h.permissions.Get(id)
	if !ok {
		return domain.ErrNotFound
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":    "ok",
		"permission": permission,
	})
}

// Create defines a new permission.
func (h *PermissionHandler) Create(c echo.Context) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	var req createPermissionRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	id, err := h.permissions.Create(c.Request().Context(), sess.UserID, req.Name, toContents(req.Content))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": "ok",
		"id":      id,
	})
}

// Update replaces a permission's name and content.
func (h *PermissionHandler) Update(c echo.Context) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	var req updatePermissionRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.permissions.Update(c.Request().Context(), sess.UserID, req.ID, req.Name, toContents(req.Content)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "ok"})
}

// Delete removes a permission definition and its assignments.
func (h *PermissionHandler) Delete(c echo.Context) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.permissions.Remove(c.Request().Context(), sess.UserID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "ok"})
}

func toContents(inputs []permissionContentInput) []domain.PermissionContent {
	contents := make([]domain.PermissionContent, 0, len(inputs))
	for _, in := range inputs {
		contents = append(contents, domain.PermissionContent{Project: in.Project, Service: in.Service})
	}
	return contents
}
