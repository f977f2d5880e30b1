// Package lifecycle drives project state transitions by composing the
// metadata store, the orchestrator adapter, and the resource renderer. It
// owns activation, deactivation, deletion, credential/config updates, and
// the pod-readiness waiter — the heart of the control plane.
package lifecycle

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/FilippTrigub/space-goose/internal/clone"
	"github.com/FilippTrigub/space-goose/internal/config"
	cperrors "github.com/FilippTrigub/space-goose/internal/errors"
	"github.com/FilippTrigub/space-goose/internal/metadata"
	"github.com/FilippTrigub/space-goose/internal/metrics"
	"github.com/FilippTrigub/space-goose/internal/orchestrator"
	"github.com/FilippTrigub/space-goose/internal/renderer"
)

// Engine is the project lifecycle engine (C4).
type Engine struct {
	meta    *metadata.Store
	orch    *orchestrator.Client
	cloner  *clone.Cloner
	cfg     *config.Config
	metrics *metrics.Metrics
	logger  zerolog.Logger

	httpClient    *http.Client
	probeHealthFn func(context.Context, string) bool
	locks         sync.Map // project_id -> *sync.Mutex
}

// NewEngine wires the metadata store, orchestrator client, and config into
// a lifecycle engine. m may be nil, in which case metrics are skipped.
func NewEngine(meta *metadata.Store, orch *orchestrator.Client, cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) *Engine {
	e := &Engine{
		meta:    meta,
		orch:    orch,
		cloner:  clone.NewCloner(orch, logger),
		cfg:     cfg,
		metrics: m,
		logger:  logger.With().Str("component", "lifecycle").Logger(),
		httpClient: &http.Client{
			Timeout: cfg.ReadinessProbeTimeout.Duration(),
		},
	}
	e.probeHealthFn = e.defaultProbeHealth
	return e
}

// lockProject returns an unlock function for the per-project mutex. Two
// concurrent transitions on the same project serialize here; the second
// caller observes whatever state the first produced.
func (e *Engine) lockProject(projectID string) func() {
	v, _ := e.locks.LoadOrStore(projectID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (e *Engine) recordTransition(operation string, err error) {
	if e.metrics == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	e.metrics.RecordTransition(operation, result)
}

// renderConfig builds the renderer's static configuration from the engine's
// loaded config.
func (e *Engine) renderConfig() renderer.Config {
	return renderer.Config{
		AgentImage:              e.cfg.AgentImage,
		AgentContainerPort:      int32(e.cfg.AgentContainerPort),
		AgentHealthPath:         e.cfg.AgentHealthPath,
		IngressEnabled:          e.cfg.IngressEnabled(),
		IngressClass:            e.cfg.IngressClass,
		BaseDomain:              e.cfg.BaseDomain,
		IngressTLSSecretPattern: e.cfg.IngressTLSSecretPattern,
		AgentSystemToken:        e.cfg.AgentSystemToken,
		ResourceProfile:         renderer.DefaultResourceProfile(),
	}
}

// resolveGithubToken implements the token precedence: project
// override, then user global token, then none.
func resolveGithubToken(user *metadata.User, project *metadata.Project) (string, metadata.GithubKeySource) {
	if project.GithubToken != "" {
		return project.GithubToken, metadata.SourceProject
	}
	if user.GithubToken != "" {
		return user.GithubToken, metadata.SourceUser
	}
	return "", ""
}

// buildRenderInput fetches settings/extensions and resolves credentials for
// (user, project), producing the input the renderer needs.
func (e *Engine) buildRenderInput(user *metadata.User, project *metadata.Project, desiredReplicas int32) (renderer.Input, error) {
	settings, err := e.meta.ListSettings(project.ID)
	if err != nil {
		return renderer.Input{}, err
	}
	extensionPtrs, err := e.meta.ListExtensions(project.ID)
	if err != nil {
		return renderer.Input{}, err
	}

	settingsMap := make(map[string]string, len(settings))
	for _, s := range settings {
		settingsMap[s.Key] = s.Value
	}
	extensions := make([]metadata.Extension, len(extensionPtrs))
	for i, ext := range extensionPtrs {
		extensions[i] = *ext
	}

	githubToken, source := resolveGithubToken(user, project)

	return renderer.Input{
		User:    user,
		Project: project,
		Env: renderer.ResolvedEnv{
			GithubToken:     githubToken,
			GithubKeySource: source,
			WorkspaceAPIKey: user.APIKey,
			Settings:        settingsMap,
			Extensions:      extensions,
		},
		DesiredReplicas: desiredReplicas,
		Config:          e.renderConfig(),
	}, nil
}

// activationDeadline returns a deadline derived from the configured
// per-operation activation budget.
func (e *Engine) activationDeadline() time.Time {
	return time.Now().Add(e.cfg.ActivationBudget.Duration())
}

// controlOpDeadline returns a deadline for a bounded control operation.
func (e *Engine) controlOpDeadline() time.Time {
	return time.Now().Add(e.cfg.ControlOpBudget.Duration())
}

func wrapOrchestratorErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return cperrors.Wrap(cperrors.KindOrchestrator, op, err)
}
