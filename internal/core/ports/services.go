package ports

import (
	"context"

	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
)

// Auditor records privileged mutations in the audit trail. Implementations
// may write asynchronously; Commit never blocks the mutation it documents.
type Auditor interface {
	Commit(userID int64, message string)
}

// AccountService owns registration, review approval, the login state
// machine and account administration.
type AccountService interface {
	Register(ctx context.Context, username, password, ip string) (*domain.Session, error)
	// Approve turns an under-review account into a normal user and rotates
	// the review session into an authorized one.
	Approve(ctx context.Context, token, ip string) (*domain.Session, error)
	// Login verifies credentials and issues either an AUTHORIZED session or
	// a WAIT_2FA session when the user has 2FA registered. Every failure
	// surfaces as the same generic error.
	Login(ctx context.Context, username, password, ip string) (*domain.Session, error)
	// CompleteTwoFA exchanges a WAIT_2FA session plus a valid code for an
	// AUTHORIZED session.
	CompleteTwoFA(ctx context.Context, token, ip, code string) (*domain.Session, error)
	Logout(ctx context.Context, token string) error
	ChangePassword(ctx context.Context, userID int64, current, next string) error

	User(id int64) (domain.User, bool)
	AllUsers() []domain.User
	IsAdmin(id int64) bool
	SetRole(ctx context.Context, actorID, id int64, role string) error
	DeleteUser(ctx context.Context, actorID, id int64) error
}

// TwoFAService owns the per-user 2FA state machine.
type TwoFAService interface {
	Register(ctx context.Context, userID int64, accountName string) (*domain.TwoFAEnrollment, error)
	// Verify checks a TOTP or recovery code. failOpen controls the result
	// when no secret exists; the gate passes false, login passes true.
	Verify(ctx context.Context, userID int64, code string, failOpen bool) (bool, error)
	Disable(ctx context.Context, userID int64, code string) error
	IsRegistered(userID int64) bool
}

// PermissionService owns permission definitions, user assignment edges and
// the two authorization predicates business routes call.
type PermissionService interface {
	All() []domain.Permission
	Get(id int64) (domain.Permission, bool)
	Exists(id int64) bool
	Create(ctx context.Context, actorID int64, name string, content []domain.PermissionContent) (int64, error)
	Update(ctx context.Context, actorID, id int64, name string, content []domain.PermissionContent) error
	Remove(ctx context.Context, actorID, id int64) error
	Grant(ctx context.Context, actorID, userID, permissionID int64) error
	Revoke(ctx context.Context, actorID, userID, permissionID int64) error
	UserPermissions(userID int64) []domain.Permission
	HasPermissionContent(userID int64, content domain.PermissionContent) bool
}

// ContainerService mediates gate-checked access to the Docker control
// plane: admins see everything, everyone else only containers matched by
// their permission contents.
type ContainerService interface {
	List(ctx context.Context, userID int64) ([]domain.ContainerDescriptor, error)
	Get(ctx context.Context, userID int64, nodeID, containerID string) (*domain.ContainerDescriptor, error)
	Start(ctx context.Context, userID int64, nodeID, containerID string) (bool, error)
	Stop(ctx context.Context, userID int64, nodeID, containerID string) (bool, error)
	Restart(ctx context.Context, userID int64, nodeID, containerID string) (bool, error)
	Logs(ctx context.Context, userID int64, nodeID, containerID string) (*domain.ContainerLogs, error)
}
