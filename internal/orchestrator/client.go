// Package orchestrator is a typed façade over the cluster's imperative API:
// namespaces, deployments, services, ingresses, secrets, config maps, and
// pod exec. It hides the transport (kubeconfig vs in-cluster) behind a
// single constructor and exposes create-or-replace semantics so callers
// never have to special-case "already exists".
package orchestrator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Client wraps the Kubernetes API for the project lifecycle engine.
type Client struct {
	clientset kubernetes.Interface
	restConfig *rest.Config
	logger    zerolog.Logger
}

// Config holds orchestrator client configuration.
type Config struct {
	// KubeconfigPath selects an out-of-cluster kubeconfig file. When empty,
	// the client falls back to in-cluster configuration.
	KubeconfigPath string
}

// NewClient creates an orchestrator client from kubeconfig or in-cluster config.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	var restConfig *rest.Config
	var err error

	if cfg.KubeconfigPath != "" {
		restConfig, err = clientcmd.BuildConfigFromFlags("", cfg.KubeconfigPath)
	} else {
		restConfig, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("building k8s config: %w", err)
	}

	cs, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("creating k8s clientset: %w", err)
	}

	return &Client{
		clientset:  cs,
		restConfig: restConfig,
		logger:     logger.With().Str("component", "orchestrator").Logger(),
	}, nil
}

// NewClientFromInterface builds a client around an existing clientset (for testing).
func NewClientFromInterface(cs kubernetes.Interface, logger zerolog.Logger) *Client {
	return &Client{
		clientset: cs,
		logger:    logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Interface exposes the underlying typed clientset to callers that need
// direct access — chiefly tests in other packages seeding fixtures.
func (c *Client) Interface() kubernetes.Interface {
	return c.clientset
}

// Ping reports whether the cluster API is reachable by issuing a cheap,
// read-only namespace list call.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{Limit: 1})
	if err != nil {
		return fmt.Errorf("pinging cluster API: %w", err)
	}
	return nil
}
