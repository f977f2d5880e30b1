package lifecycle

import (
	"context"

	"github.com/FilippTrigub/space-goose/internal/metadata"
	"github.com/FilippTrigub/space-goose/internal/renderer"
)

// AgentStatus is the health snapshot surfaced by GET .../agent/status.
type AgentStatus struct {
	ProjectStatus metadata.ProjectStatus
	PodCount      int
	ReadyCount    int
	HealthOK      bool
	LastCloneError string
}

// GetAgentStatus reports the project's persisted status alongside a live
// pod/health snapshot. It never blocks on readiness — it's a point-in-time
// read, not a wait.
func (e *Engine) GetAgentStatus(ctx context.Context, projectID string) (*AgentStatus, error) {
	project, err := e.meta.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	user, err := e.meta.GetUser(project.UserID)
	if err != nil {
		return nil, err
	}
	namespace := renderer.NamespaceName(user.ID)

	statuses, err := e.orch.GetPodStatus(ctx, namespace, podSelectorString(projectID))
	if err != nil {
		return &AgentStatus{ProjectStatus: project.Status, LastCloneError: project.LastCloneError}, nil
	}

	readyCount := 0
	for _, s := range statuses {
		if s.Ready {
			readyCount++
		}
	}

	healthOK := false
	if project.Endpoint != "" && readyCount > 0 {
		healthOK = e.probeHealthFn(ctx, project.Endpoint)
	}

	return &AgentStatus{
		ProjectStatus:  project.Status,
		PodCount:       len(statuses),
		ReadyCount:     readyCount,
		HealthOK:       healthOK,
		LastCloneError: project.LastCloneError,
	}, nil
}
