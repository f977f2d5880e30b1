package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/FilippTrigub/space-goose/internal/agentproxy"
	cfgpkg "github.com/FilippTrigub/space-goose/internal/config"
	"github.com/FilippTrigub/space-goose/internal/lifecycle"
	"github.com/FilippTrigub/space-goose/internal/metadata"
	"github.com/FilippTrigub/space-goose/internal/metrics"
	"github.com/FilippTrigub/space-goose/internal/orchestrator"
	"github.com/FilippTrigub/space-goose/internal/store"
)

func newTestServer(t *testing.T) (*Server, *metadata.Store) {
	t.Helper()
	logger := zerolog.Nop()

	dbPath := filepath.Join(t.TempDir(), "controlplane.db")
	ds, err := store.New(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })
	meta := metadata.NewStore(ds, logger)

	cs := fake.NewSimpleClientset()
	orch := orchestrator.NewClientFromInterface(cs, logger)

	cfg := &cfgpkg.Config{
		AgentImage:             "ghcr.io/space-goose/agent:latest",
		AgentContainerPort:     3001,
		AgentHealthPath:        "/health",
		IngressClass:           "nginx",
		ReadinessPollInterval:  1,
		ReadinessTimeout:       2,
		ReadinessProbeTimeout:  1,
		DeactivatePollInterval: 1,
		DeactivateTimeout:      2,
		ActivationBudget:       10,
		ControlOpBudget:        5,
		APIKeysRaw:             "testkey:u1",
	}

	engine := lifecycle.NewEngine(meta, orch, cfg, nil, logger)
	proxy := agentproxy.NewClient(meta, agentproxy.DefaultConfig(), logger)

	srv, err := NewServer(cfg, Deps{Engine: engine, Proxy: proxy, Meta: meta, Orch: orch, Metrics: metrics.New()}, logger)
	require.NoError(t, err)
	return srv, meta
}

func doJSON(t *testing.T, app *fiber.App, method, path, apiKey string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var parsed map[string]interface{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &parsed)
	}
	return resp, parsed
}

func TestHealthz_NoAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := doJSON(t, srv.App(), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestReadyz_ReportsDependencyChecks(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := doJSON(t, srv.App(), http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["status"])
	assert.NotNil(t, body["checks"])
}

func TestListProjects_RejectsWrongCaller(t *testing.T) {
	srv, meta := newTestServer(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)

	resp, _ := doJSON(t, srv.App(), http.MethodGet, "/users/u1/projects", "testkey", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, srv.App(), http.MethodGet, "/users/other-user/projects", "testkey", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestListProjects_RejectsMissingKey(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, _ := doJSON(t, srv.App(), http.MethodGet, "/users/u1/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// With no agent pod ever becoming ready against the fake cluster, creating
// a project runs the full activation path and surfaces the readiness
// timeout as 504, leaving the record in the error state.
func TestCreateProject_ReadinessTimeoutSurfacesAs504(t *testing.T) {
	srv, meta := newTestServer(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)

	resp, _ := doJSON(t, srv.App(), http.MethodPost, "/users/u1/projects", "testkey", map[string]string{
		"name": "widgets",
	})
	require.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)

	projects, err := meta.ListProjectsByUser("u1")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, metadata.StatusError, projects[0].Status)
}

func TestUpdateSettings_RejectsUnrecognizedKey(t *testing.T) {
	srv, meta := newTestServer(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)
	project, err := meta.CreateProject("u1", "widgets", "")
	require.NoError(t, err)

	resp, body := doJSON(t, srv.App(), http.MethodPut, "/users/u1/projects/"+project.ID+"/settings/not_a_real_setting", "testkey", map[string]string{
		"value": "x",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["title"])
}

func TestCreateExtension_RequiresName(t *testing.T) {
	srv, meta := newTestServer(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)
	project, err := meta.CreateProject("u1", "widgets", "")
	require.NoError(t, err)

	resp, _ := doJSON(t, srv.App(), http.MethodPost, "/users/u1/projects/"+project.ID+"/extensions", "testkey", map[string]interface{}{
		"kind": "builtin",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// The streaming route must surface the not-active error as a status code
// before any SSE headers are committed, not swallow it into an empty 200.
func TestStreamMessages_RejectsInactiveProject(t *testing.T) {
	srv, meta := newTestServer(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)
	project, err := meta.CreateProject("u1", "widgets", "")
	require.NoError(t, err)

	resp, body := doJSON(t, srv.App(), http.MethodPost, "/users/u1/projects/"+project.ID+"/messages", "testkey", map[string]string{
		"session_id": "s1",
		"content":    "hi",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["title"])
}

func TestStreamMessages_UnknownProjectIs404(t *testing.T) {
	srv, meta := newTestServer(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)

	resp, _ := doJSON(t, srv.App(), http.MethodPost, "/users/u1/projects/missing/messages", "testkey", map[string]string{
		"session_id": "s1",
		"content":    "hi",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetSetting_UnsetKeyAnswersTypedDefault(t *testing.T) {
	srv, meta := newTestServer(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)
	project, err := meta.CreateProject("u1", "widgets", "")
	require.NoError(t, err)

	resp, body := doJSON(t, srv.App(), http.MethodGet, "/users/u1/projects/"+project.ID+"/settings/max_tokens", "testkey", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(4096), body["value"])

	resp, body = doJSON(t, srv.App(), http.MethodGet, "/users/u1/projects/"+project.ID+"/settings/auto_approve_tools", "testkey", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["value"])
}

func TestGetSetting_UnrecognizedKeyRejected(t *testing.T) {
	srv, meta := newTestServer(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)
	project, err := meta.CreateProject("u1", "widgets", "")
	require.NoError(t, err)

	resp, _ := doJSON(t, srv.App(), http.MethodGet, "/users/u1/projects/"+project.ID+"/settings/not_a_real_setting", "testkey", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSendMessage_RejectsInactiveProject(t *testing.T) {
	srv, meta := newTestServer(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)
	project, err := meta.CreateProject("u1", "widgets", "")
	require.NoError(t, err)

	resp, body := doJSON(t, srv.App(), http.MethodPost, "/users/u1/projects/"+project.ID+"/messages/send", "testkey", map[string]string{
		"session_id": "s1",
		"content":    "hi",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["title"])
}
