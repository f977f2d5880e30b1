package lifecycle

import (
	"context"
	"fmt"

	cperrors "github.com/FilippTrigub/space-goose/internal/errors"
	"github.com/FilippTrigub/space-goose/internal/metadata"
	"github.com/FilippTrigub/space-goose/internal/renderer"
)

// ActivateProject is only valid when status is inactive or error. It
// re-renders (picking up any setting or credential changes since the
// project was last applied), re-applies the cluster objects, scales the
// deployment to 1, and waits for readiness. On failure it sets
// status=error without rolling back, so a retry can reuse what's in place.
func (e *Engine) ActivateProject(ctx context.Context, projectID string) (*metadata.Project, error) {
	unlock := e.lockProject(projectID)
	defer unlock()

	ctx, cancel := context.WithDeadline(ctx, e.activationDeadline())
	defer cancel()

	project, err := e.meta.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != metadata.StatusInactive && project.Status != metadata.StatusError {
		return nil, cperrors.New(cperrors.KindConflict, fmt.Sprintf("project %s cannot activate from status %s", projectID, project.Status))
	}
	user, err := e.meta.GetUser(project.UserID)
	if err != nil {
		return nil, err
	}

	if err := e.meta.UpdateProjectFields(projectID, map[string]interface{}{"status": string(metadata.StatusActivating)}); err != nil {
		return nil, err
	}

	in, err := e.buildRenderInput(user, project, 1)
	if err != nil {
		e.markError(projectID, err)
		return nil, err
	}
	bundle, err := renderer.Render(in)
	if err != nil {
		e.markError(projectID, err)
		return nil, err
	}

	// Re-applying the whole bundle (not just secret and config map) keeps
	// activation usable after a failed create rolled its objects back:
	// every step is create-or-replace, so objects that survived the last
	// attempt are reused and missing ones are recreated.
	namespace := bundle.NamespaceName
	if err := e.applyBundle(ctx, bundle); err != nil {
		e.markError(projectID, err)
		e.recordTransition("activate_project", err)
		return nil, err
	}
	if err := e.orch.ScaleDeployment(ctx, namespace, bundle.Deployment.Name, 1); err != nil {
		werr := wrapOrchestratorErr("scale deployment", err)
		e.markError(projectID, werr)
		e.recordTransition("activate_project", werr)
		return nil, werr
	}

	endpoint, err := e.orch.ReadServiceEndpoint(ctx, namespace, bundle.Service.Name, 80)
	if err != nil {
		werr := wrapOrchestratorErr("read service endpoint", err)
		e.markError(projectID, werr)
		e.recordTransition("activate_project", werr)
		return nil, werr
	}

	if err := e.waitForReady(ctx, namespace, projectID, endpoint); err != nil {
		e.markError(projectID, err)
		e.recordTransition("activate_project", err)
		return nil, err
	}

	if err := e.meta.UpdateProjectFields(projectID, map[string]interface{}{
		"status":   string(metadata.StatusActive),
		"endpoint": endpoint,
	}); err != nil {
		return nil, err
	}

	e.recordTransition("activate_project", nil)
	return e.meta.GetProject(projectID)
}
