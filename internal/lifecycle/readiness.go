package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	cperrors "github.com/FilippTrigub/space-goose/internal/errors"
	"github.com/FilippTrigub/space-goose/internal/orchestrator"
	"github.com/FilippTrigub/space-goose/internal/renderer"
)

// waitForReady blocks until at least one pod matching the deployment's
// selector is Running, Ready, and answers the agent's health endpoint with
// 200, or until the configured total timeout elapses. It is the single
// place the engine blocks for extended time.
func (e *Engine) waitForReady(ctx context.Context, namespace, projectID, endpoint string) error {
	deadline := time.Now().Add(e.cfg.ReadinessTimeout.Duration())
	interval := e.cfg.ReadinessPollInterval.Duration()
	selector := podSelectorString(projectID)

	start := time.Now()
	for {
		statuses, err := e.orch.GetPodStatus(ctx, namespace, selector)
		if err == nil && orchestrator.AnyRunningAndReady(statuses) && e.probeHealthFn(ctx, endpoint) {
			e.observeReadiness("success", time.Since(start))
			return nil
		}

		if time.Now().After(deadline) {
			e.observeReadiness("timeout", time.Since(start))
			return cperrors.New(cperrors.KindReadinessTimeout, fmt.Sprintf("project %s not ready after %s", projectID, e.cfg.ReadinessTimeout.Duration()))
		}

		select {
		case <-ctx.Done():
			e.observeReadiness("cancelled", time.Since(start))
			return cperrors.Wrap(cperrors.KindCancelled, "readiness wait cancelled", ctx.Err())
		case <-time.After(interval):
		}
	}
}

func (e *Engine) observeReadiness(result string, d time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveReadinessWait(result, d.Seconds())
}

// defaultProbeHealth performs a single bounded HTTP GET against the
// agent's health path through the resolved service endpoint. Tests
// substitute probeHealthFn to avoid real network calls.
func (e *Engine) defaultProbeHealth(ctx context.Context, endpoint string) bool {
	probeCtx, cancel := context.WithTimeout(ctx, e.cfg.ReadinessProbeTimeout.Duration())
	defer cancel()

	url := fmt.Sprintf("http://%s%s", endpoint, e.cfg.AgentHealthPath)
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func podSelectorString(projectID string) string {
	labels := renderer.PodSelectorLabels(projectID)
	return fmt.Sprintf("app=%s", labels["app"])
}
