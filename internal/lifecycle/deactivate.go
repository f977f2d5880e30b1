package lifecycle

import (
	"context"
	"fmt"
	"time"

	cperrors "github.com/FilippTrigub/space-goose/internal/errors"
	"github.com/FilippTrigub/space-goose/internal/metadata"
	"github.com/FilippTrigub/space-goose/internal/renderer"
)

// DeactivateProject is only valid when status=active. It scales the
// deployment to zero and polls for pod termination; a timeout still
// transitions to inactive — the next activate reconciles from there.
func (e *Engine) DeactivateProject(ctx context.Context, projectID string) (*metadata.Project, error) {
	unlock := e.lockProject(projectID)
	defer unlock()

	project, err := e.meta.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != metadata.StatusActive {
		return nil, cperrors.New(cperrors.KindConflict, fmt.Sprintf("project %s cannot deactivate from status %s", projectID, project.Status))
	}
	user, err := e.meta.GetUser(project.UserID)
	if err != nil {
		return nil, err
	}
	namespace := renderer.NamespaceName(user.ID)
	deploymentName := renderer.DeploymentName(projectID)

	if err := e.meta.UpdateProjectFields(projectID, map[string]interface{}{"status": string(metadata.StatusDeactivating)}); err != nil {
		return nil, err
	}

	if err := e.orch.ScaleDeployment(ctx, namespace, deploymentName, 0); err != nil {
		werr := wrapOrchestratorErr("scale deployment to zero", err)
		e.markError(projectID, werr)
		e.recordTransition("deactivate_project", werr)
		return nil, werr
	}

	e.waitForTermination(ctx, namespace, projectID)

	if err := e.meta.UpdateProjectFields(projectID, map[string]interface{}{
		"status":   string(metadata.StatusInactive),
		"endpoint": nil,
	}); err != nil {
		return nil, err
	}

	e.recordTransition("deactivate_project", nil)
	return e.meta.GetProject(projectID)
}

// waitForTermination polls until no pods match the project's selector or
// the deactivation timeout elapses. Scale-to-zero is best-effort: a timeout
// here still lets the caller transition to inactive.
func (e *Engine) waitForTermination(ctx context.Context, namespace, projectID string) {
	deadline := time.Now().Add(e.cfg.DeactivateTimeout.Duration())
	interval := e.cfg.DeactivatePollInterval.Duration()
	selector := podSelectorString(projectID)

	for time.Now().Before(deadline) {
		statuses, err := e.orch.GetPodStatus(ctx, namespace, selector)
		if err == nil && len(statuses) == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
	e.logger.Warn().Str("project_id", projectID).Msg("deactivate_project: pod termination wait timed out, proceeding to inactive")
}
