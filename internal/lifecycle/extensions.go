package lifecycle

import (
	"context"

	"github.com/FilippTrigub/space-goose/internal/metadata"
)

// UpsertExtension writes an extension definition and restarts the project
// if it is active. Every extension change declares requires_restart=true.
func (e *Engine) UpsertExtension(ctx context.Context, projectID string, ext *metadata.Extension) error {
	unlock := e.lockProject(projectID)
	defer unlock()

	ext.ProjectID = projectID
	if err := e.meta.UpsertExtension(ext); err != nil {
		return err
	}
	return e.restartIfActive(ctx, projectID)
}

// ToggleExtension flips an extension's enabled flag and restarts the
// project if it is active.
func (e *Engine) ToggleExtension(ctx context.Context, projectID, name string, enabled bool) error {
	unlock := e.lockProject(projectID)
	defer unlock()

	if err := e.meta.ToggleExtension(projectID, name, enabled); err != nil {
		return err
	}
	return e.restartIfActive(ctx, projectID)
}

// DeleteExtension removes an extension and restarts the project if it is active.
func (e *Engine) DeleteExtension(ctx context.Context, projectID, name string) error {
	unlock := e.lockProject(projectID)
	defer unlock()

	if err := e.meta.DeleteExtension(projectID, name); err != nil {
		return err
	}
	return e.restartIfActive(ctx, projectID)
}

// restartIfActive re-renders and restarts the project's deployment only
// when it is currently active; callers already hold the per-project lock.
func (e *Engine) restartIfActive(ctx context.Context, projectID string) error {
	project, err := e.meta.GetProject(projectID)
	if err != nil {
		return err
	}
	if project.Status != metadata.StatusActive {
		return nil
	}
	user, err := e.meta.GetUser(project.UserID)
	if err != nil {
		return err
	}
	return e.restartWithFreshRender(ctx, user, project)
}
