package domain

import "time"

const (
	// RoleUnderReview marks an account awaiting admin approval. Such an
	// account cannot log in or hold an authorized session.
	RoleUnderReview = "under_review"
	RoleUser        = "user"
	RoleAdmin       = "admin"
)

// ValidRole reports whether r is one of the known role tags.
func ValidRole(r string) bool {
	return r == RoleUnderReview || r == RoleUser || r == RoleAdmin
}

// User models an account in the system. ID is immutable once assigned by
// the store; RegistrationIP is the client IP seen at registration time and
// doubles as a duplicate-signup check.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	PasswordHash   string    `json:"-"`
	Role           string    `json:"group"`
	RegistrationIP string    `json:"-"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user carries the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
