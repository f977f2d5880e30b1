package orchestrator

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// PodStatus summarizes a single pod's phase and readiness for the
// readiness waiter and the agent-status endpoint.
type PodStatus struct {
	Name  string
	Phase corev1.PodPhase
	Ready bool
}

// GetPodStatus returns phase and readiness for every pod matching selector.
func (c *Client) GetPodStatus(ctx context.Context, namespace, selector string) ([]PodStatus, error) {
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, fmt.Errorf("listing pods in %s: %w", namespace, err)
	}

	result := make([]PodStatus, 0, len(pods.Items))
	for _, p := range pods.Items {
		ready := false
		for _, cond := range p.Status.Conditions {
			if cond.Type == corev1.PodReady && cond.Status == corev1.ConditionTrue {
				ready = true
				break
			}
		}
		result = append(result, PodStatus{Name: p.Name, Phase: p.Status.Phase, Ready: ready})
	}
	return result, nil
}

// AnyRunningAndReady reports whether at least one pod is both Running and Ready.
func AnyRunningAndReady(statuses []PodStatus) bool {
	for _, s := range statuses {
		if s.Phase == corev1.PodRunning && s.Ready {
			return true
		}
	}
	return false
}
