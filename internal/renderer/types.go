package renderer

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"

	"github.com/FilippTrigub/space-goose/internal/metadata"
)

// ResolvedEnv carries the per-project credential and setting values the
// lifecycle engine has already resolved (token precedence, API-key
// fallback); the renderer only serializes them into object specs.
type ResolvedEnv struct {
	GithubToken     string
	GithubKeySource metadata.GithubKeySource
	WorkspaceAPIKey string

	// Settings holds explicit overrides only, keyed by setting key; the
	// renderer fills in declared defaults for keys left unset.
	Settings map[string]string

	// Extensions is the project's full extension list; the renderer
	// filters to the enabled subset and serializes it canonically.
	Extensions []metadata.Extension
}

// ResourceProfile is the fixed compute profile applied to every agent
// container and aggregated into a namespace's resource quota.
type ResourceProfile struct {
	RequestCPU    string
	RequestMemory string
	LimitCPU      string
	LimitMemory   string
	QuotaCPU      string
	QuotaMemory   string
	QuotaPods     string
}

// DefaultResourceProfile is the profile used when no override is configured.
func DefaultResourceProfile() ResourceProfile {
	return ResourceProfile{
		RequestCPU:    "100m",
		RequestMemory: "256Mi",
		LimitCPU:      "500m",
		LimitMemory:   "512Mi",
		QuotaCPU:      "4",
		QuotaMemory:   "8Gi",
		QuotaPods:     "20",
	}
}

// Config parameterizes rendering with values that don't vary per project:
// the agent image, its ports and health path, and ingress topology.
type Config struct {
	AgentImage         string
	AgentContainerPort int32
	AgentHealthPath    string

	IngressEnabled          bool
	IngressClass           string
	BaseDomain             string
	IngressTLSSecretPattern string // supports a single "%s" for project_id-user_id

	AgentSystemToken string // shared, not per-project resolved

	ResourceProfile ResourceProfile
}

// Input bundles everything Render needs for one project.
type Input struct {
	User            *metadata.User
	Project         *metadata.Project
	Env             ResolvedEnv
	DesiredReplicas int32
	Config          Config
}

// ResourceBundle is the complete, deterministic set of cluster object
// specifications backing one project.
type ResourceBundle struct {
	NamespaceName   string
	NamespaceLabels map[string]string
	NamespaceQuota  corev1.ResourceList

	ConfigMap  *corev1.ConfigMap
	Secret     *corev1.Secret
	Deployment *appsv1.Deployment
	Service    *corev1.Service
	Ingress    *networkingv1.Ingress // nil when ingress is disabled
}
