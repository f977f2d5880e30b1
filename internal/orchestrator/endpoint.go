package orchestrator

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ReadServiceEndpoint resolves the in-cluster DNS name of a ClusterIP
// service. For a LoadBalancer-typed service it returns the first external
// address already assigned; it does not wait for one, and returns an error
// when none is assigned yet (the control plane's own services are always
// ClusterIP).
func (c *Client) ReadServiceEndpoint(ctx context.Context, namespace, name string, port int32) (string, error) {
	svc, err := c.clientset.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return "", fmt.Errorf("getting service %s/%s: %w", namespace, name, err)
	}

	if svc.Spec.Type == corev1.ServiceTypeLoadBalancer {
		for _, ing := range svc.Status.LoadBalancer.Ingress {
			if ing.IP != "" {
				return fmt.Sprintf("%s:%d", ing.IP, port), nil
			}
			if ing.Hostname != "" {
				return fmt.Sprintf("%s:%d", ing.Hostname, port), nil
			}
		}
		return "", fmt.Errorf("load balancer address not yet assigned for %s/%s", namespace, name)
	}

	return fmt.Sprintf("%s.%s.svc.cluster.local:%d", name, namespace, port), nil
}
