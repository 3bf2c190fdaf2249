// Package middleware implements the authorization gate: composable guards
// evaluated in a fixed order (session, then role, then 2FA) that
// short-circuit on the first failing stage with a distinct error each.
package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
	"github.com/azisaba/azisaba-commander-api/internal/session"
)

const (
	// SessionCookie is also accepted as a form field name; the header is
	// the third fallback. Extraction priority: cookie, body, header.
	SessionCookie = "azisabacommander_session"
	SessionHeader = "X-AzisabaCommander-Session"

	sessionContextKey = "commander_session"
)

// Gate wires the session store and the two predicates into guard
// middleware for the router.
type Gate struct {
	sessions *session.Store
	accounts ports.AccountService
	twoFA    ports.TwoFAService
}

func NewGate(sessions *session.Store, accounts ports.AccountService, twoFA ports.TwoFAService) *Gate {
	return &Gate{sessions: sessions, accounts: accounts, twoFA: twoFA}
}

// SessionKey extracts the session token from the request: cookie first,
// then body field, then the custom header.
func SessionKey(c echo.Context) string {
	if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	if v := c.FormValue(SessionCookie); v != "" {
		return v
	}
	return c.Request().Header.Get(SessionHeader)
}

// ClientIP resolves the requester's IP, preferring the CDN-provided header
// over proxy heuristics.
func ClientIP(c echo.Context) string {
	if ip := c.Request().Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	return c.RealIP()
}

// CurrentSession returns the session a guard injected for this request.
func CurrentSession(c echo.Context) (domain.Session, error) {
	sess, ok := c.Get(sessionContextKey).(domain.Session)
	if !ok {
		return domain.Session{}, domain.ErrUnauthenticated
	}
	return sess, nil
}

// Protect only converts handler panics into errors; it performs no
// authentication.
func (g *Gate) Protect() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("%v", r))
				}
			}()
			return next(c)
		}
	}
}

// Authorized requires an AUTHORIZED, unexpired session whose bound IP
// matches the requester, and injects it into the request context.
func (g *Gate) Authorized() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := g.sessions.ValidateAndGet(c.Request().Context(), SessionKey(c), ClientIP(c))
			if err != nil {
				return err
			}
			c.Set(sessionContextKey, *sess)
			return next(c)
		}
	}
}

// adminOnly must run after Authorized.
func (g *Gate) adminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := CurrentSession(c)
			if err != nil {
				return err
			}
			if !g.accounts.IsAdmin(sess.UserID) {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}

// twoFAOnly must run after Authorized.
func (g *Gate) twoFAOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := CurrentSession(c)
			if err != nil {
				return err
			}
			if !g.twoFA.IsRegistered(sess.UserID) {
				return domain.ErrTwoFARequired
			}
			return next(c)
		}
	}
}

// AuthorizedAdmin additionally requires the admin role.
func (g *Gate) AuthorizedAdmin() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{g.Authorized(), g.adminOnly()}
}

// AuthorizedWithTwoFA additionally requires 2FA registration.
func (g *Gate) AuthorizedWithTwoFA() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{g.Authorized(), g.twoFAOnly()}
}

// AuthorizedAdminWithTwoFA requires the admin role and 2FA registration.
func (g *Gate) AuthorizedAdminWithTwoFA() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{g.Authorized(), g.adminOnly(), g.twoFAOnly()}
}
