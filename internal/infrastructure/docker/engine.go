// Package docker talks to the Engine API of every configured node over
// HTTP. Containers are identified by (node id, container id) pairs; the
// compose project and service labels feed the permission model upstream.
package docker

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/azisaba/azisaba-commander-api/internal/core/domain"
)

const (
	labelProject = "com.docker.compose.project"
	labelService = "com.docker.compose.service"

	logTail = "1000"
)

// Node is one Docker Engine API endpoint under control.
type Node struct {
	ID      string
	BaseURL string
}

// ParseNodes parses "name=http://host:port" entries.
func ParseNodes(entries []string) ([]Node, error) {
	nodes := make([]Node, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		name, base, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok || name == "" || base == "" {
			return nil, fmt.Errorf("docker: malformed node entry %q", entry)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("docker: duplicate node id %q", name)
		}
		seen[name] = struct{}{}
		nodes = append(nodes, Node{ID: name, BaseURL: strings.TrimRight(base, "/")})
	}
	return nodes, nil
}

// Controller implements ports.DockerController against one or more Engine
// API endpoints.
type Controller struct {
	nodes  map[string]Node
	order  []string
	client *http.Client
	log    zerolog.Logger
}

func NewController(nodes []Node, log zerolog.Logger) *Controller {
	byID := make(map[string]Node, len(nodes))
	order := make([]string, 0, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
		order = append(order, n.ID)
	}
	sort.Strings(order)
	return &Controller{
		nodes:  byID,
		order:  order,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log.With().Str("component", "docker").Logger(),
	}
}

type apiContainer struct {
	ID      string            `json:"Id"`
	Names   []string          `json:"Names"`
	State   string            `json:"State"`
	Status  string            `json:"Status"`
	Created int64             `json:"Created"`
	Labels  map[string]string `json:"Labels"`
}

// AllContainers lists every container on every node. A node that fails to
// answer is logged and skipped so one dead host does not blank the fleet.
func (c *Controller) AllContainers(ctx context.Context) ([]domain.ContainerDescriptor, error) {
	var out []domain.ContainerDescriptor
	var lastErr error
	for _, id := range c.order {
		containers, err := c.listNode(ctx, c.nodes[id])
		if err != nil {
			c.log.Warn().Err(err).Str("node", id).Msg("node listing failed")
			lastErr = err
			continue
		}
		out = append(out, containers...)
	}
	if out == nil && lastErr != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, lastErr)
	}
	return out, nil
}

// Container fetches one container by node and container id.
func (c *Controller) Container(ctx context.Context, nodeID, containerID string) (*domain.ContainerDescriptor, error) {
	node, ok := c.nodes[nodeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	containers, err := c.listNode(ctx, node)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	for i := range containers {
		if containers[i].ID == containerID {
			return &containers[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (c *Controller) Start(ctx context.Context, nodeID, containerID string) (bool, error) {
	return c.signal(ctx, nodeID, containerID, "start")
}

func (c *Controller) Stop(ctx context.Context, nodeID, containerID string) (bool, error) {
	return c.signal(ctx, nodeID, containerID, "stop")
}

func (c *Controller) Restart(ctx context.Context, nodeID, containerID string) (bool, error) {
	return c.signal(ctx, nodeID, containerID, "restart")
}

// Logs fetches the container's recent stdout and stderr.
func (c *Controller) Logs(ctx context.Context, nodeID, containerID string) (*domain.ContainerLogs, error) {
	node, ok := c.nodes[nodeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	url := fmt.Sprintf("%s/containers/%s/logs?stdout=1&stderr=1&tail=%s", node.BaseURL, containerID, logTail)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, domain.ErrNotFound
	default:
		return nil, fmt.Errorf("%w: logs: unexpected status %d", domain.ErrUpstream, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	return &domain.ContainerLogs{
		ReadAt: time.Now().UTC(),
		Logs:   demuxLogs(raw),
	}, nil
}

func (c *Controller) listNode(ctx context.Context, node Node) ([]domain.ContainerDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, node.BaseURL+"/containers/json?all=true", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list: unexpected status %d", resp.StatusCode)
	}

	var raw []apiContainer
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	containers := make([]domain.ContainerDescriptor, 0, len(raw))
	for _, ac := range raw {
		name := ""
		if len(ac.Names) > 0 {
			name = strings.TrimPrefix(ac.Names[0], "/")
		}
		containers = append(containers, domain.ContainerDescriptor{
			ID:        ac.ID,
			NodeID:    node.ID,
			Name:      name,
			Project:   ac.Labels[labelProject],
			Service:   ac.Labels[labelService],
			Status:    ac.State,
			CreatedAt: time.Unix(ac.Created, 0).UTC(),
		})
	}
	return containers, nil
}

// signal posts a lifecycle action. The Engine answers 204 when the action
// took effect and 304 when the container already was in the requested state.
func (c *Controller) signal(ctx context.Context, nodeID, containerID, action string) (bool, error) {
	node, ok := c.nodes[nodeID]
	if !ok {
		return false, domain.ErrNotFound
	}
	url := fmt.Sprintf("%s/containers/%s/%s", node.BaseURL, containerID, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent:
		return true, nil
	case http.StatusNotModified:
		return false, nil
	case http.StatusNotFound:
		return false, domain.ErrNotFound
	default:
		return false, fmt.Errorf("%w: %s: unexpected status %d", domain.ErrUpstream, action, resp.StatusCode)
	}
}

// demuxLogs strips the 8-byte stream framing the Engine uses for non-TTY
// containers. Payloads that do not look framed are returned as-is.
func demuxLogs(raw []byte) string {
	if len(raw) < 8 || raw[0] > 2 || raw[1] != 0 || raw[2] != 0 || raw[3] != 0 {
		return string(raw)
	}
	var buf bytes.Buffer
	for len(raw) >= 8 {
		size := binary.BigEndian.Uint32(raw[4:8])
		raw = raw[8:]
		if uint32(len(raw)) < size {
			buf.Write(raw)
			break
		}
		buf.Write(raw[:size])
		raw = raw[size:]
	}
	return buf.String()
}
