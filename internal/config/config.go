// Package config loads control-plane configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort    int    `envconfig:"HTTP_PORT" default:"8080"`

	// Metadata store
	DBPath string `envconfig:"DB_PATH" default:"./data/controlplane.db"`

	// Kubernetes
	KubeconfigPath string `envconfig:"KUBECONFIG_PATH"`
	BaseDomain     string `envconfig:"BASE_DOMAIN"`
	IngressClass   string `envconfig:"INGRESS_CLASS" default:"nginx"`
	IngressTLSSecretPattern string `envconfig:"INGRESS_TLS_SECRET_PATTERN"`

	// Agent workload image and ports
	AgentImage         string `envconfig:"AGENT_IMAGE" default:"ghcr.io/space-goose/agent:latest"`
	AgentContainerPort int    `envconfig:"AGENT_CONTAINER_PORT" default:"3001"`
	AgentHealthPath    string `envconfig:"AGENT_HEALTH_PATH" default:"/health"`
	AgentSystemToken   string `envconfig:"AGENT_SYSTEM_TOKEN"`

	// Agent proxy
	AgentDialTimeout    durationSeconds `envconfig:"AGENT_DIAL_TIMEOUT_SECONDS" default:"5"`
	AgentRequestTimeout durationSeconds `envconfig:"AGENT_REQUEST_TIMEOUT_SECONDS" default:"30"`

	// Lifecycle budgets
	ReadinessPollInterval  durationSeconds `envconfig:"READINESS_POLL_INTERVAL_SECONDS" default:"3"`
	ReadinessTimeout       durationSeconds `envconfig:"READINESS_TIMEOUT_SECONDS" default:"120"`
	ReadinessProbeTimeout  durationSeconds `envconfig:"READINESS_PROBE_TIMEOUT_SECONDS" default:"5"`
	DeactivatePollInterval durationSeconds `envconfig:"DEACTIVATE_POLL_INTERVAL_SECONDS" default:"2"`
	DeactivateTimeout      durationSeconds `envconfig:"DEACTIVATE_TIMEOUT_SECONDS" default:"60"`
	ActivationBudget       durationSeconds `envconfig:"ACTIVATION_BUDGET_SECONDS" default:"150"`
	ControlOpBudget        durationSeconds `envconfig:"CONTROL_OP_BUDGET_SECONDS" default:"30"`

	// Control API
	ListenAddr     string `envconfig:"LISTEN_ADDR" default:":8090"`
	APIKeysRaw     string `envconfig:"API_KEYS"` // "key:user_id,key2:user_id2"
	RateLimitRPS   int    `envconfig:"RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst int    `envconfig:"RATE_LIMIT_BURST" default:"100"`
	CORSOrigins    string `envconfig:"CORS_ORIGINS"`
	TLSCert        string `envconfig:"TLS_CERT"`
	TLSKey         string `envconfig:"TLS_KEY"`
}

// durationSeconds lets envconfig parse a plain integer as whole seconds.
type durationSeconds int

// Seconds returns the configured value as a plain int.
func (d durationSeconds) Seconds() int { return int(d) }

// Duration returns the configured value as a time.Duration.
func (d durationSeconds) Duration() time.Duration { return time.Duration(d) * time.Second }

// APIKey pairs a caller-presented API key with the user_id it authenticates.
type APIKey struct {
	Key    string
	UserID string
}

// APIKeys parses API_KEYS ("key:user,key2:user2") into caller bindings.
func (c *Config) APIKeys() ([]APIKey, error) {
	if c.APIKeysRaw == "" {
		return nil, nil
	}
	parts := strings.Split(c.APIKeysRaw, ",")
	keys := make([]APIKey, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tokens := strings.SplitN(part, ":", 2)
		if len(tokens) != 2 {
			return nil, fmt.Errorf("invalid API_KEYS entry %q, expected key:user_id", part)
		}
		keys = append(keys, APIKey{Key: strings.TrimSpace(tokens[0]), UserID: strings.TrimSpace(tokens[1])})
	}
	return keys, nil
}

// IngressEnabled reports whether the renderer should produce an Ingress object.
func (c *Config) IngressEnabled() bool {
	return c.BaseDomain != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// LoadWithPrefix reads configuration with a prefix, used by tests that want
// an isolated environment namespace.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config with prefix %s: %w", prefix, err)
	}
	return &cfg, nil
}
