package lifecycle

import (
	"context"

	"github.com/FilippTrigub/space-goose/internal/metadata"
)

// UpdateGithubToken writes or clears the project's own Git-token override.
// When token is nil and the resolved source was the project's own key, the
// effective value falls back to the user's global token. It triggers a
// restart if the project is active.
func (e *Engine) UpdateGithubToken(ctx context.Context, projectID string, token *string) error {
	unlock := e.lockProject(projectID)
	defer unlock()

	project, err := e.meta.GetProject(projectID)
	if err != nil {
		return err
	}

	source := metadata.SourceProject
	if token == nil {
		user, err := e.meta.GetUser(project.UserID)
		if err != nil {
			return err
		}
		if user.GithubToken != "" {
			source = metadata.SourceUser
		} else {
			source = ""
		}
	}

	if err := e.meta.SetProjectGithubToken(projectID, token, source); err != nil {
		return err
	}

	return e.restartIfActive(ctx, projectID)
}

// UpdateUserGlobalToken writes the user-scoped token, then re-resolves and
// restarts every active project of that user whose github_key_source is
// "user". Fan-out is at-least-once: duplicate restart annotations are
// harmless.
func (e *Engine) UpdateUserGlobalToken(ctx context.Context, userID string, token *string) error {
	if err := e.meta.SetUserGithubToken(userID, token); err != nil {
		return err
	}

	user, err := e.meta.GetUser(userID)
	if err != nil {
		return err
	}

	projects, err := e.meta.ListProjectsByGithubSource(userID, metadata.SourceUser)
	if err != nil {
		return err
	}

	var firstErr error
	for _, project := range projects {
		if project.Status != metadata.StatusActive {
			continue
		}
		unlock := e.lockProject(project.ID)
		err := e.restartWithFreshRender(ctx, user, project)
		unlock()
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
