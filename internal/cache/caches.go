package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
)

// Users caches every account keyed by id.
type Users struct {
	*Snapshot[int64, domain.User]
}

func NewUsers(repo ports.UserRepository, interval time.Duration, log zerolog.Logger) *Users {
	fetch := func(ctx context.Context) (map[int64]domain.User, error) {
		users, err := repo.All(ctx)
		if err != nil {
			return nil, err
		}
		m := make(map[int64]domain.User, len(users))
		for _, u := range users {
			m[u.ID] = u
		}
		return m, nil
	}
	return &Users{NewSnapshot("users", interval, fetch, log)}
}

// IsAdmin reports whether the cached user carries the admin role.
func (c *Users) IsAdmin(id int64) bool {
	u, ok := c.Get(id)
	return ok && u.IsAdmin()
}

// Permissions caches every permission definition keyed by id, with the
// content already parsed.
type Permissions struct {
	*Snapshot[int64, domain.Permission]
}

func NewPermissions(repo ports.PermissionRepository, interval time.Duration, log zerolog.Logger) *Permissions {
	fetch := func(ctx context.Context) (map[int64]domain.Permission, error) {
		perms, err := repo.All(ctx)
		if err != nil {
			return nil, err
		}
		m := make(map[int64]domain.Permission, len(perms))
		for _, p := range perms {
			m[p.ID] = p
		}
		return m, nil
	}
	return &Permissions{NewSnapshot("permissions", interval, fetch, log)}
}

// UserPermissions caches the user id -> permission ids edge set.
type UserPermissions struct {
	*Snapshot[int64, []int64]
}

func NewUserPermissions(repo ports.PermissionRepository, interval time.Duration, log zerolog.Logger) *UserPermissions {
	return &UserPermissions{NewSnapshot("user_permissions", interval, repo.AllAssignments, log)}
}

// PermissionIDs returns the cached permission ids held by a user.
func (c *UserPermissions) PermissionIDs(userID int64) []int64 {
	ids, _ := c.Get(userID)
	return ids
}

// TwoFARegistered caches the set of users holding a TOTP secret.
type TwoFARegistered struct {
	*Snapshot[int64, struct{}]
}

func NewTwoFARegistered(repo ports.TwoFARepository, interval time.Duration, log zerolog.Logger) *TwoFARegistered {
	fetch := func(ctx context.Context) (map[int64]struct{}, error) {
		ids, err := repo.RegisteredUserIDs(ctx)
		if err != nil {
			return nil, err
		}
		m := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			m[id] = struct{}{}
		}
		return m, nil
	}
	return &TwoFARegistered{NewSnapshot("twofa", interval, fetch, log)}
}

// Registered reports whether the user appears in the 2FA-registered set.
func (c *TwoFARegistered) Registered(userID int64) bool {
	return c.Contains(userID)
}
