package renderer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	cperrors "github.com/FilippTrigub/space-goose/internal/errors"
	"github.com/FilippTrigub/space-goose/internal/metadata"
)

const restartAnnotation = "space-goose.dev/restarted-at"

// Render is the pure function from (user, project, resolved environment) to
// the complete set of cluster object specifications for that project. Same
// inputs produce byte-identical specifications.
func Render(in Input) (*ResourceBundle, error) {
	if in.Project == nil {
		return nil, cperrors.New(cperrors.KindInvalidArgument, "render: project is required")
	}
	if in.User == nil {
		return nil, cperrors.New(cperrors.KindInvalidArgument, "render: user is required")
	}

	userID, projectID := in.User.ID, in.Project.ID
	namespace := NamespaceName(userID)
	selector := PodSelectorLabels(projectID)

	configMap, err := renderConfigMap(namespace, userID, projectID, in.Env)
	if err != nil {
		return nil, err
	}
	secret := renderSecret(namespace, projectID, in.Env, in.Config)
	deployment := renderDeployment(namespace, projectID, selector, in.DesiredReplicas, in.Config)
	service := renderService(namespace, projectID, selector, in.Config.AgentContainerPort)

	var ingress *networkingv1.Ingress
	if in.Config.IngressEnabled {
		ingress = renderIngress(namespace, projectID, userID, in.Config)
	}

	return &ResourceBundle{
		NamespaceName:   namespace,
		NamespaceLabels: NamespaceLabels(),
		NamespaceQuota:  renderQuota(in.Config.ResourceProfile),
		ConfigMap:       configMap,
		Secret:          secret,
		Deployment:      deployment,
		Service:         service,
		Ingress:         ingress,
	}, nil
}

func renderQuota(p ResourceProfile) corev1.ResourceList {
	return corev1.ResourceList{
		corev1.ResourceRequestsCPU:    resource.MustParse(p.QuotaCPU),
		corev1.ResourceRequestsMemory: resource.MustParse(p.QuotaMemory),
		corev1.ResourcePods:           resource.MustParse(p.QuotaPods),
	}
}

// resolveSettings fills declared defaults for any recognized key not given
// an explicit value, and returns env-var-name→value entries in the stable
// order RecognizedSettings declares.
func resolveSettings(explicit map[string]string) []envEntry {
	entries := make([]envEntry, 0, len(metadata.RecognizedSettings))
	for _, def := range metadata.RecognizedSettings {
		value, ok := explicit[def.Key]
		if !ok {
			value = def.Default
		}
		if value == "" {
			continue
		}
		entries = append(entries, envEntry{Name: def.EnvVar, Value: value})
	}
	return entries
}

type envEntry struct {
	Name  string
	Value string
}

// serializedExtension is the canonical, stable-field-order JSON shape of one
// enabled extension, embedded in the config map as a single variable.
type serializedExtension struct {
	Name    string            `json:"name"`
	Kind    string            `json:"kind"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URI     string            `json:"uri,omitempty"`
	Code    string            `json:"code,omitempty"`
}

// serializeExtensions filters to enabled extensions, sorts by name for
// determinism, and marshals to a single JSON array string.
func serializeExtensions(extensions []metadata.Extension) (string, error) {
	enabled := make([]metadata.Extension, 0, len(extensions))
	for _, e := range extensions {
		if e.Enabled {
			enabled = append(enabled, e)
		}
	}
	sort.Slice(enabled, func(i, j int) bool { return enabled[i].Name < enabled[j].Name })

	out := make([]serializedExtension, 0, len(enabled))
	for _, e := range enabled {
		out = append(out, serializedExtension{
			Name:    e.Name,
			Kind:    string(e.Kind),
			Command: e.Command,
			Args:    e.Args,
			Env:     e.Env,
			URI:     e.URI,
			Code:    e.Code,
		})
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return "", cperrors.Wrap(cperrors.KindInvalidArgument, "serialize extensions", err)
	}
	return string(raw), nil
}

func renderConfigMap(namespace, userID, projectID string, env ResolvedEnv) (*corev1.ConfigMap, error) {
	data := map[string]string{
		"USER_ID":    userID,
		"PROJECT_ID": projectID,
	}
	for _, e := range resolveSettings(env.Settings) {
		data[e.Name] = e.Value
	}
	extensionsJSON, err := serializeExtensions(env.Extensions)
	if err != nil {
		return nil, err
	}
	data["AGENT_EXTENSIONS"] = extensionsJSON

	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ConfigMapName(projectID),
			Namespace: namespace,
			Labels:    PodSelectorLabels(projectID),
		},
		Data: data,
	}, nil
}

func renderSecret(namespace, projectID string, env ResolvedEnv, cfg Config) *corev1.Secret {
	data := map[string][]byte{}
	if env.WorkspaceAPIKey != "" {
		data["WORKSPACE_API_KEY"] = []byte(env.WorkspaceAPIKey)
	}
	if env.GithubToken != "" {
		data["GIT_TOKEN"] = []byte(env.GithubToken)
	}
	if cfg.AgentSystemToken != "" {
		data["AGENT_SYSTEM_TOKEN"] = []byte(cfg.AgentSystemToken)
	}

	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      SecretName(projectID),
			Namespace: namespace,
			Labels:    PodSelectorLabels(projectID),
		},
		Type: corev1.SecretTypeOpaque,
		Data: data,
	}
}

func renderDeployment(namespace, projectID string, selector map[string]string, replicas int32, cfg Config) *appsv1.Deployment {
	probe := &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{
				Path: cfg.AgentHealthPath,
				Port: intstr.FromInt(int(cfg.AgentContainerPort)),
			},
		},
		InitialDelaySeconds: 10,
		PeriodSeconds:       5,
	}
	liveness := probe.DeepCopy()
	liveness.InitialDelaySeconds = 30

	runAsNonRoot := true
	var runAsUser int64 = 1000

	container := corev1.Container{
		Name:  "agent",
		Image: cfg.AgentImage,
		Ports: []corev1.ContainerPort{
			{ContainerPort: cfg.AgentContainerPort, Name: "http"},
		},
		EnvFrom: []corev1.EnvFromSource{
			{ConfigMapRef: &corev1.ConfigMapEnvSource{LocalObjectReference: corev1.LocalObjectReference{Name: ConfigMapName(projectID)}}},
			{SecretRef: &corev1.SecretEnvSource{LocalObjectReference: corev1.LocalObjectReference{Name: SecretName(projectID)}}},
		},
		ReadinessProbe: probe,
		LivenessProbe:  liveness,
		Resources: corev1.ResourceRequirements{
			Requests: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse(cfg.ResourceProfile.RequestCPU),
				corev1.ResourceMemory: resource.MustParse(cfg.ResourceProfile.RequestMemory),
			},
			Limits: corev1.ResourceList{
				corev1.ResourceCPU:    resource.MustParse(cfg.ResourceProfile.LimitCPU),
				corev1.ResourceMemory: resource.MustParse(cfg.ResourceProfile.LimitMemory),
			},
		},
		SecurityContext: &corev1.SecurityContext{
			RunAsNonRoot:             &runAsNonRoot,
			RunAsUser:                &runAsUser,
			AllowPrivilegeEscalation: boolPtr(false),
		},
	}

	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      DeploymentName(projectID),
			Namespace: namespace,
			Labels:    selector,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: int32Ptr(replicas),
			Selector: &metav1.LabelSelector{MatchLabels: selector},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: selector},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{container},
					SecurityContext: &corev1.PodSecurityContext{
						RunAsNonRoot: &runAsNonRoot,
						RunAsUser:    &runAsUser,
					},
				},
			},
		},
	}
}

func renderService(namespace, projectID string, selector map[string]string, containerPort int32) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ServiceName(projectID),
			Namespace: namespace,
			Labels:    selector,
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: selector,
			Ports: []corev1.ServicePort{
				{
					Port:       80,
					TargetPort: intstr.FromInt(int(containerPort)),
					Protocol:   corev1.ProtocolTCP,
				},
			},
		},
	}
}

func renderIngress(namespace, projectID, userID string, cfg Config) *networkingv1.Ingress {
	host := IngressHost(projectID, userID, cfg.BaseDomain)
	pathType := networkingv1.PathTypePrefix

	spec := networkingv1.IngressSpec{
		Rules: []networkingv1.IngressRule{
			{
				Host: host,
				IngressRuleValue: networkingv1.IngressRuleValue{
					HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{
							{
								Path:     "/",
								PathType: &pathType,
								Backend: networkingv1.IngressBackend{
									Service: &networkingv1.IngressServiceBackend{
										Name: ServiceName(projectID),
										Port: networkingv1.ServiceBackendPort{Number: 80},
									},
								},
							},
						},
					},
				},
			},
		},
	}
	if cfg.IngressClass != "" {
		spec.IngressClassName = &cfg.IngressClass
	}
	if cfg.IngressTLSSecretPattern != "" {
		secretName := cfg.IngressTLSSecretPattern
		if strings.Contains(secretName, "%s") {
			secretName = fmt.Sprintf(secretName, fmt.Sprintf("%s-%s", projectID, userID))
		}
		spec.TLS = []networkingv1.IngressTLS{
			{Hosts: []string{host}, SecretName: secretName},
		}
	}

	return &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:      IngressName(projectID),
			Namespace: namespace,
			Labels:    PodSelectorLabels(projectID),
		},
		Spec: spec,
	}
}

func int32Ptr(v int32) *int32 { return &v }
func boolPtr(v bool) *bool    { return &v }
