package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/azisaba/azisaba-commander-api/internal/cache"
	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
	"github.com/azisaba/azisaba-commander-api/internal/core/ports"
)

// ContainerService implements ports.ContainerService over the Docker
// control-plane collaborator. It owns the permission filtering; it knows
// nothing about how the control plane talks to the nodes.
type ContainerService struct {
	docker ports.DockerController
	perms  ports.PermissionService
	caches *cache.Set
	audit  ports.Auditor
	log    zerolog.Logger
}

var _ ports.ContainerService = (*ContainerService)(nil)

func NewContainerService(docker ports.DockerController, perms ports.PermissionService, caches *cache.Set, audit ports.Auditor, log zerolog.Logger) *ContainerService {
	return &ContainerService{docker: docker, perms: perms, caches: caches, audit: audit, log: log}
}

// List returns every container the user may see: all of them for admins,
// otherwise only those matched by the user's permission contents.
func (s *ContainerService) List(ctx context.Context, userID int64) ([]domain.ContainerDescriptor, error) {
	containers, err := s.docker.AllContainers(ctx)
	if err != nil {
		return nil, err
	}
	if s.caches.Users.IsAdmin(userID) {
		return containers, nil
	}
	visible := make([]domain.ContainerDescriptor, 0, len(containers))
	for _, c := range containers {
		if s.allowed(userID, c) {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

func (s *ContainerService) Get(ctx context.Context, userID int64, nodeID, containerID string) (*domain.ContainerDescriptor, error) {
	c, err := s.resolve(ctx, userID, nodeID, containerID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ContainerService) Start(ctx context.Context, userID int64, nodeID, containerID string) (bool, error) {
	c, err := s.resolve(ctx, userID, nodeID, containerID)
	if err != nil {
		return false, err
	}
	changed, err := s.docker.Start(ctx, nodeID, containerID)
	if err != nil {
		return false, err
	}
	if changed {
		s.audit.Commit(userID, fmt.Sprintf("started container %s:%s", c.Project, c.Service))
	}
	return changed, nil
}

func (s *ContainerService) Stop(ctx context.Context, userID int64, nodeID, containerID string) (bool, error) {
	c, err := s.resolve(ctx, userID, nodeID, containerID)
	if err != nil {
		return false, err
	}
	changed, err := s.docker.Stop(ctx, nodeID, containerID)
	if err != nil {
		return false, err
	}
	if changed {
		s.audit.Commit(userID, fmt.Sprintf("stopped container %s:%s", c.Project, c.Service))
	}
	return changed, nil
}

func (s *ContainerService) Restart(ctx context.Context, userID int64, nodeID, containerID string) (bool, error) {
	c, err := s.resolve(ctx, userID, nodeID, containerID)
	if err != nil {
		return false, err
	}
	changed, err := s.docker.Restart(ctx, nodeID, containerID)
	if err != nil {
		return false, err
	}
	if changed {
		s.audit.Commit(userID, fmt.Sprintf("restarted container %s:%s", c.Project, c.Service))
	}
	return changed, nil
}

func (s *ContainerService) Logs(ctx context.Context, userID int64, nodeID, containerID string) (*domain.ContainerLogs, error) {
	if _, err := s.resolve(ctx, userID, nodeID, containerID); err != nil {
		return nil, err
	}
	return s.docker.Logs(ctx, nodeID, containerID)
}

// resolve fetches the container and enforces the permission check shared
// by every per-container operation.
func (s *ContainerService) resolve(ctx context.Context, userID int64, nodeID, containerID string) (*domain.ContainerDescriptor, error) {
	if nodeID == "" || containerID == "" {
		return nil, domain.ErrInvalidInput
	}
	c, err := s.docker.Container(ctx, nodeID, containerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	if !s.caches.Users.IsAdmin(userID) && !s.allowed(userID, *c) {
		return nil, domain.ErrForbidden
	}
	return c, nil
}

func (s *ContainerService) allowed(userID int64, c domain.ContainerDescriptor) bool {
	return s.perms.HasPermissionContent(userID, domain.PermissionContent{
		Project: c.Project,
		Service: c.Service,
	})
}
