package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/azisaba/azisaba-commander-api/internal/api/middleware"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
)

// ContainerHandler serves the container control plane. Every route goes
// through ContainerService which enforces the per-user permission gate.
type ContainerHandler struct {
	containers ports.ContainerService
}

func NewContainerHandler(containers ports.ContainerService) *ContainerHandler {
	return &ContainerHandler{containers: containers}
}

// List returns the containers the caller is allowed to see.
func (h *ContainerHandler) List(c echo.Context) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	containers, err := h.containers.List(c.Request().Context(), sess.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":    "ok",
		"containers": containers,
	})
}

// Get returns a single container the caller is allowed to see.
func (h *ContainerHandler) Get(c echo.Context) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	container, err := h.containers.Get(c.Request().Context(), sess.UserID, c.Param("nodeId"), c.Param("containerId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":   "ok",
		"container": container,
	})
}

// Start starts a container. Responds 304 when the container was already
// running.
func (h *ContainerHandler) Start(c echo.Context) error {
	return h.mutate(c, h.containers.Start)
}

// Stop stops a container. Responds 304 when it was already stopped.
func (h *ContainerHandler) Stop(c echo.Context) error {
	return h.mutate(c, h.containers.Stop)
}

// Restart restarts a container.
func (h *ContainerHandler) Restart(c echo.Context) error {
	return h.mutate(c, h.containers.Restart)
}

// Logs returns the container's recent log output.
func (h *ContainerHandler) Logs(c echo.Context) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	logs, err := h.containers.Logs(c.Request().Context(), sess.UserID, c.Param("nodeId"), c.Param("containerId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": "ok",
		"logs":    logs,
	})
}

func (h *ContainerHandler) mutate(c echo.Context, op func(context.Context, int64, string, string) (bool, error)) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	changed, err := op(c.Request().Context(), sess.UserID, c.Param("nodeId"), c.Param("containerId"))
	if err != nil {
		return err
	}
	if !changed {
		return c.NoContent(http.StatusNotModified)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "ok"})
}
