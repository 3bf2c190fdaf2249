package ports

import (
	"context"

	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
)

// UserRepository persists accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (int64, error)
	Find(ctx context.Context, id int64) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// ExistsByUsernameOrIP backs the duplicate-signup check at registration.
	ExistsByUsernameOrIP(ctx context.Context, username, ip string) (bool, error)
	All(ctx context.Context) ([]domain.User, error)
	UpdateRole(ctx context.Context, id int64, role string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	// Delete removes the user and all dependent rows (permission
	// assignments, 2FA secret, recovery codes, sessions) in one transaction.
	Delete(ctx context.Context, id int64) error
}

// SessionRepository is the durable layer under the hybrid session store.
type SessionRepository interface {
	Insert(ctx context.Context, s domain.Session) error
	Find(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, token string) error
}

// PermissionRepository persists permission definitions and the many-to-many
// user assignment edges.
type PermissionRepository interface {
	Create(ctx context.Context, name, content string) (int64, error)
	Update(ctx context.Context, id int64, name, content string) error
	Delete(ctx context.Context, id int64) error
	All(ctx context.Context) ([]domain.Permission, error)
	// AllAssignments returns the full user id -> permission ids edge set.
	AllAssignments(ctx context.Context) (map[int64][]int64, error)
	Assign(ctx context.Context, userID, permissionID int64) error
	Unassign(ctx context.Context, userID, permissionID int64) error
}

// TwoFARepository persists TOTP secrets and recovery codes.
type TwoFARepository interface {
	Secret(ctx context.Context, userID int64) (string, error)
	CreateSecret(ctx context.Context, userID int64, secret string) error
	CreateRecoveryCodes(ctx context.Context, userID int64, codes []string) error
	// ConsumeRecoveryCode marks an unused code as used and reports whether
	// a code was consumed. A code authorizes at most one success.
	ConsumeRecoveryCode(ctx context.Context, userID int64, code string) (bool, error)
	// DeleteAll removes the secret and every recovery code atomically.
	DeleteAll(ctx context.Context, userID int64) error
	// RegisteredUserIDs lists every user holding a secret, for the
	// 2FA-registered cache.
	RegisteredUserIDs(ctx context.Context) ([]int64, error)
}

// AuditRepository persists the privileged-mutation audit trail.
type AuditRepository interface {
	Insert(ctx context.Context, userID int64, message string) error
	Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}
