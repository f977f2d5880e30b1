package lifecycle

import (
	"context"

	"github.com/FilippTrigub/space-goose/internal/metadata"
	"github.com/FilippTrigub/space-goose/internal/renderer"
)

// restartWithFreshRender re-renders the config map and secret from current
// metadata state, re-applies them, and stamps the deployment's pod
// template with a restart annotation. It does not wait for the
// new pods to become ready; callers that need that should call
// ActivateProject explicitly.
func (e *Engine) restartWithFreshRender(ctx context.Context, user *metadata.User, project *metadata.Project) error {
	in, err := e.buildRenderInput(user, project, 1)
	if err != nil {
		return err
	}
	bundle, err := renderer.Render(in)
	if err != nil {
		return err
	}

	if err := e.orch.ApplyConfigMap(ctx, bundle.NamespaceName, bundle.ConfigMap); err != nil {
		return wrapOrchestratorErr("apply config map", err)
	}
	if err := e.orch.ApplySecret(ctx, bundle.NamespaceName, bundle.Secret); err != nil {
		return wrapOrchestratorErr("apply secret", err)
	}
	if err := e.orch.RestartDeployment(ctx, bundle.NamespaceName, bundle.Deployment.Name); err != nil {
		return wrapOrchestratorErr("restart deployment", err)
	}
	return nil
}
