package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/azisaba/azisaba-commander-api/internal/api/middleware"
	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
)

type AuthHandler struct {
	accounts ports.AccountService
}

func NewAuthHandler(accounts ports.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=7"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type twoFAChallengeRequest struct {
	Code string `json:"code" validate:"required"`
}

type sessionResponse struct {
	State   string `json:"state"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=7"`
}

// Register creates an under-review account and returns its review session.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sess, err := h.accounts.Register(c.Request().Context(), req.Username, req.Password, middleware.ClientIP(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionResponse{
		State:   sess.Token,
		Status:  string(sess.Status),
		Message: "ok",
	})
}

// Approve consumes a review token, upgrading the account and its session.
func (h *AuthHandler) Approve(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return domain.ErrInvalidInput
	}
	sess, err := h.accounts.Approve(c.Request().Context(), token, middleware.ClientIP(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"id":      sess.Token,
		"user_id": sess.UserID,
	})
}

// Login authenticates credentials and sets the session cookie. When the
// user has 2FA registered the returned session is a WAIT_2FA challenge
// that must be completed via LoginTwoFA.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&req); err != nil {
		// Do not reveal which field failed.
		return domain.ErrInvalidCredentials
	}

	sess, err := h.accounts.Login(c.Request().Context(), req.Username, req.Password, middleware.ClientIP(c))
	if err != nil {
		return err
	}
	if sess.Status == domain.StatusWait2FA {
		return c.JSON(http.StatusOK, sessionResponse{
			State:   sess.Token,
			Status:  string(sess.Status),
			Message: "2fa_required",
		})
	}

	h.setSessionCookie(c, sess)
	return c.JSON(http.StatusOK, sessionResponse{
		State:   sess.Token,
		Status:  string(sess.Status),
		Message: "logged_in",
	})
}

// LoginTwoFA completes a WAIT_2FA challenge with a TOTP or recovery code.
func (h *AuthHandler) LoginTwoFA(c echo.Context) error {
	var req twoFAChallengeRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sess, err := h.accounts.CompleteTwoFA(c.Request().Context(), middleware.SessionKey(c), middleware.ClientIP(c), req.Code)
	if err != nil {
		return err
	}
	h.setSessionCookie(c, sess)
	return c.JSON(http.StatusOK, sessionResponse{
		State:   sess.Token,
		Status:  string(sess.Status),
		Message: "logged_in",
	})
}

// Logout destroys the current session. Always succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.accounts.Logout(c.Request().Context(), middleware.SessionKey(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "logged-out"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	user, ok := h.accounts.User(sess.UserID)
	if !ok {
		return domain.ErrUserNotFound
	}
	return c.JSON(http.StatusOK, user)
}

// ChangePassword rotates the authenticated user's password after
// re-verifying the current one.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.accounts.ChangePassword(c.Request().Context(), sess.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "ok"})
}

func (h *AuthHandler) setSessionCookie(c echo.Context, sess *domain.Session) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
