// Package renderer is the pure function from (User, Project, resolved
// environment) to the set of Kubernetes object specifications backing a
// project. It owns the naming scheme; every other component computes
// object names by calling these functions rather than formatting strings
// itself.
package renderer

import "fmt"

// NamespaceName returns the shared namespace for all of a user's projects.
func NamespaceName(userID string) string {
	return fmt.Sprintf("user-%s", userID)
}

// ConfigMapName returns the name of a project's non-secret config map.
func ConfigMapName(projectID string) string {
	return fmt.Sprintf("proj-%s-env", projectID)
}

// SecretName returns the name of a project's credential secret.
func SecretName(projectID string) string {
	return fmt.Sprintf("proj-%s-secrets", projectID)
}

// DeploymentName returns the name of a project's deployment.
func DeploymentName(projectID string) string {
	return fmt.Sprintf("proj-%s-api", projectID)
}

// ServiceName returns the name of a project's service. Identical to the
// deployment name by convention.
func ServiceName(projectID string) string {
	return fmt.Sprintf("proj-%s-api", projectID)
}

// IngressName returns the name of a project's ingress.
func IngressName(projectID string) string {
	return fmt.Sprintf("proj-%s-api", projectID)
}

// IngressHost returns the externally routable hostname for a project.
func IngressHost(projectID, userID, baseDomain string) string {
	return fmt.Sprintf("%s-%s.%s", projectID, userID, baseDomain)
}

// PodSelectorLabels returns the label set used to select a project's pods.
func PodSelectorLabels(projectID string) map[string]string {
	return map[string]string{"app": DeploymentName(projectID)}
}

// NamespaceLabels returns the fixed label set applied to a user's namespace.
func NamespaceLabels() map[string]string {
	return map[string]string{"role": "project-workload"}
}
