package lifecycle

import (
	"context"

	"github.com/FilippTrigub/space-goose/internal/clone"
	cperrors "github.com/FilippTrigub/space-goose/internal/errors"
	"github.com/FilippTrigub/space-goose/internal/metadata"
	"github.com/FilippTrigub/space-goose/internal/renderer"
)

// ManualClone runs the repo cloner on demand (POST .../clone-repository),
// only valid while the project is active since the clone executes inside
// the running pod. The returned result carries a non-fatal failure (clone
// exit != 0) so the caller can respond with a warning instead of an error.
func (e *Engine) ManualClone(ctx context.Context, projectID string) (*clone.Result, error) {
	unlock := e.lockProject(projectID)
	defer unlock()

	project, err := e.meta.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != metadata.StatusActive {
		return nil, cperrors.New(cperrors.KindProjectNotActive, "project must be active to clone its repository")
	}
	if project.RepoURL == "" {
		return nil, cperrors.New(cperrors.KindInvalidArgument, "project has no repo_url configured")
	}
	user, err := e.meta.GetUser(project.UserID)
	if err != nil {
		return nil, err
	}
	namespace := renderer.NamespaceName(user.ID)
	return e.cloneRepository(ctx, namespace, project)
}

// cloneRepository runs the repo cloner and records its outcome on the
// project. A non-zero exit sets has_repository=false and records the last
// error but never transitions the project out of active — the agent is
// still usable without the repo.
func (e *Engine) cloneRepository(ctx context.Context, namespace string, project *metadata.Project) (*clone.Result, error) {
	result, err := e.cloner.Clone(ctx, namespace, project.ID, project.RepoURL)
	if err != nil {
		e.recordCloneAttempt("error")
		_ = e.meta.UpdateProjectFields(project.ID, map[string]interface{}{
			"has_repository":   false,
			"last_clone_error": err.Error(),
		})
		return nil, err
	}

	if !result.Succeeded {
		e.recordCloneAttempt("failed")
		if err := e.meta.UpdateProjectFields(project.ID, map[string]interface{}{
			"has_repository":   false,
			"last_clone_error": result.Stderr,
		}); err != nil {
			return nil, err
		}
		return result, nil
	}

	e.recordCloneAttempt("success")
	if err := e.meta.UpdateProjectFields(project.ID, map[string]interface{}{
		"has_repository":   true,
		"last_clone_error": "",
	}); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) recordCloneAttempt(result string) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordCloneAttempt(result)
}
