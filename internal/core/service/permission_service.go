package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/azisaba/azisaba-commander-api/internal/cache"
	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
)

// PermissionService implements ports.PermissionService. Reads come from
// the local caches; every mutation writes the durable store, refreshes the
// affected cache on this process, and then notifies peers.
type PermissionService struct {
	repo   ports.PermissionRepository
	caches *cache.Set
	bus    ports.InvalidationBus
	audit  ports.Auditor
	log    zerolog.Logger
}

var _ ports.PermissionService = (*PermissionService)(nil)

func NewPermissionService(repo ports.PermissionRepository, caches *cache.Set, bus ports.InvalidationBus, audit ports.Auditor, log zerolog.Logger) *PermissionService {
	return &PermissionService{repo: repo, caches: caches, bus: bus, audit: audit, log: log}
}

func (s *PermissionService) All() []domain.Permission {
	snapshot := s.caches.Permissions.All()
	perms := make([]domain.Permission, 0, len(snapshot))
	for _, p := range snapshot {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i].ID < perms[j].ID })
	return perms
}

func (s *PermissionService) Get(id int64) (domain.Permission, bool) {
	return s.caches.Permissions.Get(id)
}

func (s *PermissionService) Exists(id int64) bool {
	return s.caches.Permissions.Contains(id)
}

func (s *PermissionService) Create(ctx context.Context, actorID int64, name string, content []domain.PermissionContent) (int64, error) {
	if name == "" || len(content) == 0 {
		return 0, domain.ErrInvalidInput
	}
	id, err := s.repo.Create(ctx, name, domain.FormatContent(content))
	if err != nil {
		return 0, err
	}
	s.invalidatePermissions(ctx)
	s.audit.Commit(actorID, fmt.Sprintf("created permission %d (%s)", id, name))
	return id, nil
}

func (s *PermissionService) Update(ctx context.Context, actorID, id int64, name string, content []domain.PermissionContent) error {
	if name == "" || len(content) == 0 {
		return domain.ErrInvalidInput
	}
	if err := s.repo.Update(ctx, id, name, domain.FormatContent(content)); err != nil {
		return err
	}
	s.invalidatePermissions(ctx)
	s.audit.Commit(actorID, fmt.Sprintf("updated permission %d (%s)", id, name))
	return nil
}

// Remove deletes the definition together with its assignment edges, so the
// mutating process observes the removal immediately.
func (s *PermissionService) Remove(ctx context.Context, actorID, id int64) error {
	if !s.Exists(id) {
		return domain.ErrNotFound
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidatePermissions(ctx)
	s.invalidateAssignments(ctx)
	s.audit.Commit(actorID, fmt.Sprintf("removed permission %d", id))
	return nil
}

func (s *PermissionService) Grant(ctx context.Context, actorID, userID, permissionID int64) error {
	if !s.Exists(permissionID) {
		return domain.ErrNotFound
	}
	if err := s.repo.Assign(ctx, userID, permissionID); err != nil {
		return err
	}
	s.invalidateAssignments(ctx)
	s.audit.Commit(actorID, fmt.Sprintf("granted permission %d to user %d", permissionID, userID))
	return nil
}

func (s *PermissionService) Revoke(ctx context.Context, actorID, userID, permissionID int64) error {
	if err := s.repo.Unassign(ctx, userID, permissionID); err != nil {
		return err
	}
	s.invalidateAssignments(ctx)
	s.audit.Commit(actorID, fmt.Sprintf("revoked permission %d from user %d", permissionID, userID))
	return nil
}

// UserPermissions resolves a user's permission ids to definitions through
// the caches. Edges pointing at a definition missing from the permission
// cache are skipped.
func (s *PermissionService) UserPermissions(userID int64) []domain.Permission {
	ids := s.caches.UserPermissions.PermissionIDs(userID)
	perms := make([]domain.Permission, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.caches.Permissions.Get(id); ok {
			perms = append(perms, p)
		}
	}
	return perms
}

// HasPermissionContent is the authorization predicate business routes call
// before acting on a container.
func (s *PermissionService) HasPermissionContent(userID int64, content domain.PermissionContent) bool {
	for _, p := range s.UserPermissions(userID) {
		if p.Matches(content.Project, content.Service) {
			return true
		}
	}
	return false
}

func (s *PermissionService) invalidatePermissions(ctx context.Context) {
	_ = s.caches.Permissions.Refresh(ctx)
	_ = s.bus.Publish(ctx, ports.TopicPermissions)
}

func (s *PermissionService) invalidateAssignments(ctx context.Context) {
	_ = s.caches.UserPermissions.Refresh(ctx)
	_ = s.bus.Publish(ctx, ports.TopicUserPermissions)
}
