package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/azisaba/azisaba-commander-api/internal/api/middleware"
	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
)

// UserHandler serves the admin-only user management routes.
type UserHandler struct {
	accounts    ports.AccountService
	permissions ports.PermissionService
}

func NewUserHandler(accounts ports.AccountService, permissions ports.PermissionService) *UserHandler {
	return &UserHandler{accounts: accounts, permissions: permissions}
}

type setGroupRequest struct {
	Group string `json:"group" validate:"required,oneof=under_review user admin"`
}

// List returns every user profile.
func (h *UserHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"message": "ok",
		"users":   h.accounts.AllUsers(),
	})
}

// Get returns one user profile.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	user, ok := h.accounts.User(id)
	if !ok {
		return domain.ErrUserNotFound
	}
	return c.JSON(http.StatusOK, user)
}

// Delete removes a user with all dependent records.
func (h *UserHandler) Delete(c echo.Context) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.accounts.DeleteUser(c.Request().Context(), sess.UserID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "ok"})
}

// SetGroup changes a user's role tag.
func (h *UserHandler) SetGroup(c echo.Context) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req setGroupRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.accounts.SetRole(c.Request().Context(), sess.UserID, id, req.Group); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "ok"})
}

// Permissions lists the permissions granted to a user.
func (h *UserHandler) Permissions(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if _, ok := h.accounts.User(id); !ok {
		return domain.ErrUserNotFound
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":     "ok",
		"permissions": h.permissions.UserPermissions(id),
	})
}

// Grant assigns a permission to a user.
func (h *UserHandler) Grant(c echo.Context) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	userID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	permissionID, err := pathID(c, "permissionId")
	if err != nil {
		return err
	}
	if _, ok := h.accounts.User(userID); !ok {
		return domain.ErrUserNotFound
	}
	if err := h.permissions.Grant(c.Request().Context(), sess.UserID, userID, permissionID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "ok"})
}

// Revoke removes a permission assignment from a user.
func (h *UserHandler) Revoke(c echo.Context) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	userID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	permissionID, err := pathID(c, "permissionId")
	if err != nil {
		return err
	}
	if err := h.permissions.Revoke(c.Request().Context(), sess.UserID, userID, permissionID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "ok"})
}

// pathID parses a positive numeric path parameter, threading the resolved
// id explicitly instead of stashing it on the request.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidInput
	}
	return id, nil
}
