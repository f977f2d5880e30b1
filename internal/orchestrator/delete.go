package orchestrator

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Kind identifies a cluster object type for DeleteNamespaced.
type Kind string

const (
	KindDeployment Kind = "deployment"
	KindService    Kind = "service"
	KindIngress    Kind = "ingress"
	KindSecret     Kind = "secret"
	KindConfigMap  Kind = "configmap"
)

// DeleteNamespaced deletes a single namespaced object by kind and name.
// Absence is not an error — deletes are best-effort and idempotent.
func (c *Client) DeleteNamespaced(ctx context.Context, kind Kind, namespace, name string) error {
	var err error
	switch kind {
	case KindDeployment:
		fg := metav1.DeletePropagationForeground
		err = c.clientset.AppsV1().Deployments(namespace).Delete(ctx, name, metav1.DeleteOptions{PropagationPolicy: &fg})
	case KindService:
		err = c.clientset.CoreV1().Services(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	case KindIngress:
		err = c.clientset.NetworkingV1().Ingresses(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	case KindSecret:
		err = c.clientset.CoreV1().Secrets(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	case KindConfigMap:
		err = c.clientset.CoreV1().ConfigMaps(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}

	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("deleting %s %s/%s: %w", kind, namespace, name, err)
	}
	return nil
}
