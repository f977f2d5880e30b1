package lifecycle

import (
	"context"
	"fmt"

	"github.com/FilippTrigub/space-goose/internal/metadata"
	"github.com/FilippTrigub/space-goose/internal/renderer"
)

// CreateResult is returned by CreateProject.
type CreateResult struct {
	Project *metadata.Project
}

// CreateProject generates a project_id, renders and applies the cluster
// objects for replicas=1, waits for readiness, and — if repo_url is set —
// invokes the repo cloner before returning. On any failure it rolls back
// objects applied in this call, writes status=error, and returns the error.
func (e *Engine) CreateProject(ctx context.Context, userID, name, repoURL, initialGithubToken string) (*CreateResult, error) {
	ctx, cancel := context.WithDeadline(ctx, e.activationDeadline())
	defer cancel()

	user, err := e.meta.GetUser(userID)
	if err != nil {
		return nil, err
	}

	project, err := e.meta.CreateProject(userID, name, repoURL)
	if err != nil {
		return nil, err
	}
	unlock := e.lockProject(project.ID)
	defer unlock()

	if initialGithubToken != "" {
		if err := e.meta.SetProjectGithubToken(project.ID, &initialGithubToken, metadata.SourceProject); err != nil {
			e.markError(project.ID, err)
			return nil, err
		}
		project.GithubToken = initialGithubToken
		project.GithubKeySet = true
		project.GithubKeySource = metadata.SourceProject
	}

	in, err := e.buildRenderInput(user, project, 1)
	if err != nil {
		e.markError(project.ID, err)
		return nil, err
	}
	bundle, err := renderer.Render(in)
	if err != nil {
		e.markError(project.ID, err)
		return nil, err
	}

	if err := e.applyBundle(ctx, bundle); err != nil {
		e.rollbackProjectObjects(ctx, bundle.NamespaceName, project.ID)
		e.markError(project.ID, err)
		e.recordTransition("create_project", err)
		return nil, err
	}

	if err := e.meta.UpdateProjectFields(project.ID, map[string]interface{}{"status": string(metadata.StatusActivating)}); err != nil {
		return nil, err
	}

	endpoint, err := e.orch.ReadServiceEndpoint(ctx, bundle.NamespaceName, bundle.Service.Name, 80)
	if err != nil {
		e.rollbackProjectObjects(ctx, bundle.NamespaceName, project.ID)
		werr := wrapOrchestratorErr("read service endpoint", err)
		e.markError(project.ID, werr)
		e.recordTransition("create_project", werr)
		return nil, werr
	}

	if err := e.waitForReady(ctx, bundle.NamespaceName, project.ID, endpoint); err != nil {
		e.rollbackProjectObjects(ctx, bundle.NamespaceName, project.ID)
		e.markError(project.ID, err)
		e.recordTransition("create_project", err)
		return nil, err
	}

	if err := e.meta.UpdateProjectFields(project.ID, map[string]interface{}{
		"status":   string(metadata.StatusActive),
		"endpoint": endpoint,
	}); err != nil {
		return nil, err
	}
	project.Status = metadata.StatusActive
	project.Endpoint = endpoint

	if repoURL != "" {
		result, cloneErr := e.cloneRepository(ctx, bundle.NamespaceName, project)
		if cloneErr != nil {
			e.logger.Warn().Err(cloneErr).Str("project_id", project.ID).Msg("create_project: initial clone failed, project remains active")
		} else if !result.Succeeded {
			e.logger.Warn().Int("exit_code", result.ExitCode).Str("project_id", project.ID).Msg("create_project: clone exited non-zero, project remains active")
		}
	}

	e.recordTransition("create_project", nil)
	if fresh, err := e.meta.GetProject(project.ID); err == nil {
		project = fresh
	}
	return &CreateResult{Project: project}, nil
}

// markError writes status=error, swallowing the write failure into a log
// line since the original error already describes the failure to the caller.
func (e *Engine) markError(projectID string, cause error) {
	if err := e.meta.UpdateProjectFields(projectID, map[string]interface{}{
		"status":   string(metadata.StatusError),
		"endpoint": nil,
	}); err != nil {
		e.logger.Error().Err(err).Str("project_id", projectID).Str("cause", fmt.Sprintf("%v", cause)).Msg("failed to persist error status")
	}
}
