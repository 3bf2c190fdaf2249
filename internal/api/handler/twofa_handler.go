package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/azisaba/azisaba-commander-api/internal/api/middleware"
	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
)

type TwoFAHandler struct {
	twoFA    ports.TwoFAService
	accounts ports.AccountService
}

func NewTwoFAHandler(twoFA ports.TwoFAService, accounts ports.AccountService) *TwoFAHandler {
	return &TwoFAHandler{twoFA: twoFA, accounts: accounts}
}

type twoFACodeRequest struct {
	Code string `json:"code" validate:"required"`
}

// Status reports whether the authenticated user has 2FA registered.
func (h *TwoFAHandler) Status(c echo.Context) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"registered": h.twoFA.IsRegistered(sess.UserID),
	})
}

// Register enrolls the authenticated user and returns the provisioning URL
// with the recovery codes. This is the only time the codes are visible.
func (h *TwoFAHandler) Register(c echo.Context) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	user, ok := h.accounts.User(sess.UserID)
	if !ok {
		return domain.ErrUserNotFound
	}

	enrollment, err := h.twoFA.Register(c.Request().Context(), sess.UserID, user.Username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":  "ok",
		"url":      enrollment.URL,
		"recovery": enrollment.RecoveryCodes,
	})
}

// Disable clears the user's 2FA state; it requires a valid TOTP or
// recovery code.
func (h *TwoFAHandler) Disable(c echo.Context) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	var req twoFACodeRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.twoFA.Disable(c.Request().Context(), sess.UserID, req.Code); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "ok"})
}
