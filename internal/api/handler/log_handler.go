package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
)

const maxAuditPage = 1000

// LogHandler serves the admin-only audit trail listing.
type LogHandler struct {
	audit ports.AuditRepository
}

func NewLogHandler(audit ports.AuditRepository) *LogHandler {
	return &LogHandler{audit: audit}
}

// List returns the most recent audit entries, newest first. The optional
// limit query parameter caps the page size.
func (h *LogHandler) List(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxAuditPage {
			return domain.ErrInvalidInput
		}
		limit = n
	}
	entries, err := h.audit.Recent(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": "ok",
		"logs":    entries,
	})
}
