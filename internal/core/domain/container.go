package domain

import "time"

// ContainerDescriptor describes one container on one Docker node, as
// reported by the control-plane collaborator. Project and Service are the
// compose labels the permission model matches against.
type ContainerDescriptor struct {
	ID        string    `json:"id"`
	NodeID    string    `json:"docker_id"`
	Name      string    `json:"name"`
	Project   string    `json:"project_name"`
	Service   string    `json:"service_name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ContainerLogs is a log snapshot retrieved from the control plane.
type ContainerLogs struct {
	ReadAt time.Time `json:"read_at"`
	Logs   string    `json:"logs"`
}
