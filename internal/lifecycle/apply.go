package lifecycle

import (
	"context"

	"github.com/FilippTrigub/space-goose/internal/orchestrator"
	"github.com/FilippTrigub/space-goose/internal/renderer"
)

// applyBundle applies cluster objects in dependency order:
// namespace → secret → config map → service → ingress → deployment.
// Deployment is applied last so its pods find the secret and config map
// already mounted.
func (e *Engine) applyBundle(ctx context.Context, bundle *renderer.ResourceBundle) error {
	if err := e.orch.EnsureNamespace(ctx, bundle.NamespaceName, bundle.NamespaceLabels, bundle.NamespaceQuota); err != nil {
		return wrapOrchestratorErr("ensure namespace", err)
	}
	if err := e.orch.ApplySecret(ctx, bundle.NamespaceName, bundle.Secret); err != nil {
		return wrapOrchestratorErr("apply secret", err)
	}
	if err := e.orch.ApplyConfigMap(ctx, bundle.NamespaceName, bundle.ConfigMap); err != nil {
		return wrapOrchestratorErr("apply config map", err)
	}
	if err := e.orch.ApplyService(ctx, bundle.NamespaceName, bundle.Service); err != nil {
		return wrapOrchestratorErr("apply service", err)
	}
	if bundle.Ingress != nil {
		if err := e.orch.ApplyIngress(ctx, bundle.NamespaceName, bundle.Ingress); err != nil {
			return wrapOrchestratorErr("apply ingress", err)
		}
	}
	if err := e.orch.ApplyDeployment(ctx, bundle.NamespaceName, bundle.Deployment); err != nil {
		return wrapOrchestratorErr("apply deployment", err)
	}
	return nil
}

// rollbackProjectObjects best-effort deletes the per-project objects
// created in the current call. It never deletes the namespace, which is
// shared across a user's projects. Only create_project rolls back; other
// failure paths leave objects in place so a retry can reuse them.
func (e *Engine) rollbackProjectObjects(ctx context.Context, namespace, projectID string) {
	_ = e.orch.DeleteNamespaced(ctx, orchestrator.KindIngress, namespace, renderer.IngressName(projectID))
	_ = e.orch.DeleteNamespaced(ctx, orchestrator.KindService, namespace, renderer.ServiceName(projectID))
	_ = e.orch.DeleteNamespaced(ctx, orchestrator.KindDeployment, namespace, renderer.DeploymentName(projectID))
	_ = e.orch.DeleteNamespaced(ctx, orchestrator.KindSecret, namespace, renderer.SecretName(projectID))
	_ = e.orch.DeleteNamespaced(ctx, orchestrator.KindConfigMap, namespace, renderer.ConfigMapName(projectID))
}

// deleteProjectObjects deletes every per-project object in reverse creation
// order, ignoring not-found errors. Failures
// are logged but non-fatal — the caller proceeds to remove the metadata
// record regardless.
func (e *Engine) deleteProjectObjects(ctx context.Context, namespace, projectID string) {
	steps := []struct {
		kind orchestrator.Kind
		name string
	}{
		{orchestrator.KindIngress, renderer.IngressName(projectID)},
		{orchestrator.KindService, renderer.ServiceName(projectID)},
		{orchestrator.KindDeployment, renderer.DeploymentName(projectID)},
		{orchestrator.KindSecret, renderer.SecretName(projectID)},
		{orchestrator.KindConfigMap, renderer.ConfigMapName(projectID)},
	}
	for _, step := range steps {
		if err := e.orch.DeleteNamespaced(ctx, step.kind, namespace, step.name); err != nil {
			e.logger.Warn().Err(err).Str("project_id", projectID).Str("kind", string(step.kind)).Msg("delete_project: cluster object delete failed, continuing")
		}
	}
}
