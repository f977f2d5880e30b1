package orchestrator

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ApplyConfigMap creates or replaces a config map's data.
func (c *Client) ApplyConfigMap(ctx context.Context, namespace string, cm *corev1.ConfigMap) error {
	existing, err := c.clientset.CoreV1().ConfigMaps(namespace).Get(ctx, cm.Name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		_, err := c.clientset.CoreV1().ConfigMaps(namespace).Create(ctx, cm, metav1.CreateOptions{})
		if err != nil && !apierrors.IsAlreadyExists(err) {
			return fmt.Errorf("creating config map %s: %w", cm.Name, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("getting config map %s: %w", cm.Name, err)
	}
	existing.Data = cm.Data
	existing.Labels = cm.Labels
	if _, err := c.clientset.CoreV1().ConfigMaps(namespace).Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("updating config map %s: %w", cm.Name, err)
	}
	return nil
}

// ApplySecret creates or replaces a secret's data.
func (c *Client) ApplySecret(ctx context.Context, namespace string, secret *corev1.Secret) error {
	existing, err := c.clientset.CoreV1().Secrets(namespace).Get(ctx, secret.Name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		_, err := c.clientset.CoreV1().Secrets(namespace).Create(ctx, secret, metav1.CreateOptions{})
		if err != nil && !apierrors.IsAlreadyExists(err) {
			return fmt.Errorf("creating secret %s: %w", secret.Name, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("getting secret %s: %w", secret.Name, err)
	}
	existing.Data = secret.Data
	existing.Labels = secret.Labels
	if _, err := c.clientset.CoreV1().Secrets(namespace).Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("updating secret %s: %w", secret.Name, err)
	}
	return nil
}

// ApplyService creates or replaces a service spec, preserving the
// cluster-assigned ClusterIP across updates.
func (c *Client) ApplyService(ctx context.Context, namespace string, svc *corev1.Service) error {
	existing, err := c.clientset.CoreV1().Services(namespace).Get(ctx, svc.Name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		_, err := c.clientset.CoreV1().Services(namespace).Create(ctx, svc, metav1.CreateOptions{})
		if err != nil && !apierrors.IsAlreadyExists(err) {
			return fmt.Errorf("creating service %s: %w", svc.Name, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("getting service %s: %w", svc.Name, err)
	}
	svc.Spec.ClusterIP = existing.Spec.ClusterIP
	existing.Spec = svc.Spec
	existing.Labels = svc.Labels
	if _, err := c.clientset.CoreV1().Services(namespace).Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("updating service %s: %w", svc.Name, err)
	}
	return nil
}

// ApplyDeployment creates or replaces a deployment spec.
func (c *Client) ApplyDeployment(ctx context.Context, namespace string, dep *appsv1.Deployment) error {
	existing, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, dep.Name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		_, err := c.clientset.AppsV1().Deployments(namespace).Create(ctx, dep, metav1.CreateOptions{})
		if err != nil && !apierrors.IsAlreadyExists(err) {
			return fmt.Errorf("creating deployment %s: %w", dep.Name, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("getting deployment %s: %w", dep.Name, err)
	}
	existing.Spec = dep.Spec
	existing.Labels = dep.Labels
	if _, err := c.clientset.AppsV1().Deployments(namespace).Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("updating deployment %s: %w", dep.Name, err)
	}
	return nil
}

// ApplyIngress creates or replaces an ingress spec.
func (c *Client) ApplyIngress(ctx context.Context, namespace string, ing *networkingv1.Ingress) error {
	existing, err := c.clientset.NetworkingV1().Ingresses(namespace).Get(ctx, ing.Name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		_, err := c.clientset.NetworkingV1().Ingresses(namespace).Create(ctx, ing, metav1.CreateOptions{})
		if err != nil && !apierrors.IsAlreadyExists(err) {
			return fmt.Errorf("creating ingress %s: %w", ing.Name, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("getting ingress %s: %w", ing.Name, err)
	}
	existing.Spec = ing.Spec
	existing.Labels = ing.Labels
	if _, err := c.clientset.NetworkingV1().Ingresses(namespace).Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("updating ingress %s: %w", ing.Name, err)
	}
	return nil
}
