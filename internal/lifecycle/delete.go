package lifecycle

import (
	"context"

	"github.com/FilippTrigub/space-goose/internal/renderer"
)

// DeleteProject is allowed from any state. It deletes ingress, service,
// deployment, secret, and config map in that order (best-effort, not
// fatal), then removes the metadata record. It never deletes the
// namespace, which is shared across a user's projects.
func (e *Engine) DeleteProject(ctx context.Context, projectID string) error {
	unlock := e.lockProject(projectID)
	defer unlock()

	ctx, cancel := context.WithDeadline(ctx, e.controlOpDeadline())
	defer cancel()

	project, err := e.meta.GetProject(projectID)
	if err != nil {
		return err
	}
	user, err := e.meta.GetUser(project.UserID)
	if err != nil {
		return err
	}
	namespace := renderer.NamespaceName(user.ID)

	e.deleteProjectObjects(ctx, namespace, projectID)

	if err := e.meta.DeleteProject(projectID); err != nil {
		return err
	}
	e.recordTransition("delete_project", nil)
	return nil
}
