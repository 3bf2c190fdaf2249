package domain

import "time"

// SessionStatus is the closed set of session states. Transitions never
// mutate a live token: the old session is deleted and a fresh token of the
// next status is issued.
type SessionStatus string

const (
	// StatusPending is a synthetic placeholder for an unknown or absent
	// token. It is never persisted to the durable store.
	StatusPending SessionStatus = "PENDING"
	// StatusUnderReview is issued at registration, before admin approval.
	StatusUnderReview SessionStatus = "UNDER_REVIEW"
	// StatusWait2FA means credentials checked out but the 2FA challenge is
	// still outstanding.
	StatusWait2FA SessionStatus = "WAIT_2FA"
	// StatusAuthorized is the only status the authorization gate accepts.
	StatusAuthorized SessionStatus = "AUTHORIZED"
)

// CanTransitionTo encodes the legal session state machine:
//
//	UNDER_REVIEW -> AUTHORIZED  (admin approval)
//	WAIT_2FA     -> AUTHORIZED  (2FA challenge passed)
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case StatusUnderReview, StatusWait2FA:
		return next == StatusAuthorized
	default:
		return false
	}
}

// Session is the unit of authentication, owned by exactly one user and
// bound to the client IP observed when it was issued.
type Session struct {
	Token     string        `json:"state"`
	ExpiresAt time.Time     `json:"expires_at"`
	UserID    int64         `json:"user_id"`
	IP        string        `json:"-"`
	Status    SessionStatus `json:"status"`
}

// Expired reports whether the session is past its expiry at the given instant.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Negative reports whether the session is a cached placeholder for a token
// that does not exist in the durable store.
func (s Session) Negative() bool {
	return s.Status == StatusPending && s.UserID == 0 && s.IP == ""
}
