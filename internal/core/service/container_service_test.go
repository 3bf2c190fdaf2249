package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
)

type stubDocker struct {
	containers []domain.ContainerDescriptor
	started    []string
}

func (d *stubDocker) AllContainers(context.Context) ([]domain.ContainerDescriptor, error) {
	return d.containers, nil
}

func (d *stubDocker) Container(_ context.Context, nodeID, containerID string) (*domain.ContainerDescriptor, error) {
	for i := range d.containers {
		if d.containers[i].NodeID == nodeID && d.containers[i].ID == containerID {
			return &d.containers[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (d *stubDocker) Start(_ context.Context, nodeID, containerID string) (bool, error) {
	d.started = append(d.started, nodeID+"/"+containerID)
	return true, nil
}

func (d *stubDocker) Stop(context.Context, string, string) (bool, error) { return false, nil }

func (d *stubDocker) Restart(context.Context, string, string) (bool, error) { return true, nil }

func (d *stubDocker) Logs(context.Context, string, string) (*domain.ContainerLogs, error) {
	return &domain.ContainerLogs{Logs: "line"}, nil
}

func newContainerFixture(t *testing.T, docker *stubDocker) (*ContainerService, *recordingAuditor) {
	t.Helper()
	users := newMemUserRepo()
	perms := newMemPermissionRepo()

	// user 1 is admin, user 2 holds survival:*, user 3 holds nothing.
	_, _ = users.Create(context.Background(), &domain.User{Username: "root", Role: domain.RoleAdmin})
	_, _ = users.Create(context.Background(), &domain.User{Username: "ops", Role: domain.RoleUser})
	_, _ = users.Create(context.Background(), &domain.User{Username: "guest", Role: domain.RoleUser})
	pid, _ := perms.Create(context.Background(), "survival", "survival:*")
	_ = perms.Assign(context.Background(), 2, pid)

	caches := newTestCaches(users, perms, newMemTwoFARepo())
	audit := &recordingAuditor{}
	permSvc := NewPermissionService(perms, caches, &recordingBus{}, audit, zerolog.Nop())
	return NewContainerService(docker, permSvc, caches, audit, zerolog.Nop()), audit
}

func TestContainerService_List(t *testing.T) {
	docker := &stubDocker{containers: []domain.ContainerDescriptor{
		{ID: "c1", NodeID: "node1", Project: "survival", Service: "proxy"},
		{ID: "c2", NodeID: "node1", Project: "lobby", Service: "proxy"},
	}}
	svc, _ := newContainerFixture(t, docker)

	all, err := svc.List(context.Background(), 1)
	if err != nil || len(all) != 2 {
		t.Fatalf("admin must see the whole fleet: %v %+v", err, all)
	}
	some, err := svc.List(context.Background(), 2)
	if err != nil || len(some) != 1 || some[0].ID != "c1" {
		t.Fatalf("permission holder must see only matching containers: %v %+v", err, some)
	}
	none, err := svc.List(context.Background(), 3)
	if err != nil || len(none) != 0 {
		t.Fatalf("user without grants must see nothing: %v %+v", err, none)
	}
}

func TestContainerService_StartPermissionGate(t *testing.T) {
	docker := &stubDocker{containers: []domain.ContainerDescriptor{
		{ID: "c1", NodeID: "node1", Project: "survival", Service: "proxy"},
		{ID: "c2", NodeID: "node1", Project: "lobby", Service: "proxy"},
	}}
	svc, audit := newContainerFixture(t, docker)

	changed, err := svc.Start(context.Background(), 2, "node1", "c1")
	if err != nil || !changed {
		t.Fatalf("permitted start failed: changed=%v err=%v", changed, err)
	}
	if audit.len() != 1 {
		t.Fatalf("effective start must be audited")
	}

	if _, err := svc.Start(context.Background(), 2, "node1", "c2"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("start outside the grant must be forbidden, got %v", err)
	}
	if _, err := svc.Start(context.Background(), 2, "node1", "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown container must 404, got %v", err)
	}
	if _, err := svc.Start(context.Background(), 2, "", "c1"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("empty node id must be rejected, got %v", err)
	}
}

func TestContainerService_StopNotModifiedIsNotAudited(t *testing.T) {
	docker := &stubDocker{containers: []domain.ContainerDescriptor{
		{ID: "c1", NodeID: "node1", Project: "survival", Service: "proxy"},
	}}
	svc, audit := newContainerFixture(t, docker)

	changed, err := svc.Stop(context.Background(), 1, "node1", "c1")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if changed {
		t.Fatalf("stub reports already stopped")
	}
	if audit.len() != 0 {
		t.Fatalf("a no-op mutation must not be audited")
	}
}

func TestContainerService_Logs(t *testing.T) {
	docker := &stubDocker{containers: []domain.ContainerDescriptor{
		{ID: "c1", NodeID: "node1", Project: "survival", Service: "proxy"},
	}}
	svc, _ := newContainerFixture(t, docker)

	logs, err := svc.Logs(context.Background(), 2, "node1", "c1")
	if err != nil || logs.Logs != "line" {
		t.Fatalf("permitted logs read failed: %v %+v", err, logs)
	}
	if _, err := svc.Logs(context.Background(), 3, "node1", "c1"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("logs outside the grant must be forbidden, got %v", err)
	}
}
