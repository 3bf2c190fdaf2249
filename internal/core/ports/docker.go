package ports

import (
	"context"

	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
)

// DockerController is the Docker control-plane collaborator. The
// authorization gate decides whether these may be invoked; it knows nothing
// about their implementation.
//
// Start, Stop and Restart report false when the container was already in
// the requested state.
type DockerController interface {
	AllContainers(ctx context.Context) ([]domain.ContainerDescriptor, error)
	Container(ctx context.Context, nodeID, containerID string) (*domain.ContainerDescriptor, error)
	Start(ctx context.Context, nodeID, containerID string) (bool, error)
	Stop(ctx context.Context, nodeID, containerID string) (bool, error)
	Restart(ctx context.Context, nodeID, containerID string) (bool, error)
	Logs(ctx context.Context, nodeID, containerID string) (*domain.ContainerLogs, error)
}
