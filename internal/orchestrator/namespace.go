package orchestrator

import (
	"context"
	"fmt"
	"reflect"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const quotaName = "project-workload-quota"

// EnsureNamespace creates the namespace if missing. If it already exists,
// it verifies labels and the resource quota match and patches them if they
// have drifted.
func (c *Client) EnsureNamespace(ctx context.Context, name string, labels map[string]string, quota corev1.ResourceList) error {
	ns, err := c.clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		ns = &corev1.Namespace{
			ObjectMeta: metav1.ObjectMeta{
				Name:   name,
				Labels: labels,
			},
		}
		if _, err := c.clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{}); err != nil {
			if apierrors.IsAlreadyExists(err) {
				return nil
			}
			return fmt.Errorf("creating namespace %s: %w", name, err)
		}
		return c.ensureQuota(ctx, name, quota)
	}
	if err != nil {
		return fmt.Errorf("getting namespace %s: %w", name, err)
	}

	if !labelsMatch(ns.Labels, labels) {
		if ns.Labels == nil {
			ns.Labels = map[string]string{}
		}
		for k, v := range labels {
			ns.Labels[k] = v
		}
		if _, err := c.clientset.CoreV1().Namespaces().Update(ctx, ns, metav1.UpdateOptions{}); err != nil {
			return fmt.Errorf("updating namespace labels %s: %w", name, err)
		}
	}

	return c.ensureQuota(ctx, name, quota)
}

func (c *Client) ensureQuota(ctx context.Context, namespace string, hard corev1.ResourceList) error {
	if len(hard) == 0 {
		return nil
	}

	rq, err := c.clientset.CoreV1().ResourceQuotas(namespace).Get(ctx, quotaName, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		rq = &corev1.ResourceQuota{
			ObjectMeta: metav1.ObjectMeta{Name: quotaName, Namespace: namespace},
			Spec:       corev1.ResourceQuotaSpec{Hard: hard},
		}
		if _, err := c.clientset.CoreV1().ResourceQuotas(namespace).Create(ctx, rq, metav1.CreateOptions{}); err != nil && !apierrors.IsAlreadyExists(err) {
			return fmt.Errorf("creating resource quota in %s: %w", namespace, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("getting resource quota in %s: %w", namespace, err)
	}

	if !reflect.DeepEqual(rq.Spec.Hard, hard) {
		rq.Spec.Hard = hard
		if _, err := c.clientset.CoreV1().ResourceQuotas(namespace).Update(ctx, rq, metav1.UpdateOptions{}); err != nil {
			return fmt.Errorf("updating resource quota in %s: %w", namespace, err)
		}
	}
	return nil
}

func labelsMatch(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}
