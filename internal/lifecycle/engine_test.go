package lifecycle

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	cfgpkg "github.com/FilippTrigub/space-goose/internal/config"
	cperrors "github.com/FilippTrigub/space-goose/internal/errors"
	"github.com/FilippTrigub/space-goose/internal/metadata"
	"github.com/FilippTrigub/space-goose/internal/orchestrator"
	"github.com/FilippTrigub/space-goose/internal/renderer"
	"github.com/FilippTrigub/space-goose/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *metadata.Store) {
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
	}

	e := NewEngine(meta, orch, cfg, nil, logger)
	return e, meta
}

// seedDeployment creates the project's deployment object so scale and
// restart calls against the fake clientset have something to act on.
func seedDeployment(t *testing.T, e *Engine, namespace, projectID string) {
	t.Helper()
	one := int32(1)
	dep := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      renderer.DeploymentName(projectID),
			Namespace: namespace,
			Labels:    renderer.PodSelectorLabels(projectID),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &one,
			Selector: &metav1.LabelSelector{MatchLabels: renderer.PodSelectorLabels(projectID)},
		},
	}
	_, err := e.orch.Interface().AppsV1().Deployments(namespace).Create(context.Background(), dep, metav1.CreateOptions{})
	require.NoError(t, err)
}

// seedReadyPod creates a Pod matching the project's selector, marked
// Running and Ready, so the readiness waiter's cluster-side check passes.
func seedReadyPod(t *testing.T, e *Engine, namespace, projectID string) {
	t.Helper()
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      renderer.DeploymentName(projectID) + "-abc123",
			Namespace: namespace,
			Labels:    renderer.PodSelectorLabels(projectID),
		},
		Status: corev1.PodStatus{
			Phase:      corev1.PodRunning,
			Conditions: []corev1.PodCondition{{Type: corev1.PodReady, Status: corev1.ConditionTrue}},
		},
	}
	_, err := e.orch.Interface().CoreV1().Pods(namespace).Create(context.Background(), pod, metav1.CreateOptions{})
	require.NoError(t, err)
}

func TestCreateProject_ReadinessTimeout_SetsErrorStatus(t *testing.T) {
	e, meta := newTestEngine(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)

	_, err = e.CreateProject(context.Background(), "u1", "widgets", "", "")
	require.Error(t, err)
	assert.Equal(t, cperrors.KindReadinessTimeout, cperrors.KindOf(err))

	projects, err := meta.ListProjectsByUser("u1")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, metadata.StatusError, projects[0].Status)
}

func TestActivateProject_Success(t *testing.T) {
	e, meta := newTestEngine(t)
	e.probeHealthFn = func(ctx context.Context, endpoint string) bool { return true }

	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)
	project, err := meta.CreateProject("u1", "widgets", "")
	require.NoError(t, err)

	namespace := renderer.NamespaceName("u1")
	seedReadyPod(t, e, namespace, project.ID)

	updated, err := e.ActivateProject(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, metadata.StatusActive, updated.Status)
	assert.NotEmpty(t, updated.Endpoint)
}

func TestActivateProject_RejectsFromActiveStatus(t *testing.T) {
	e, meta := newTestEngine(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)
	project, err := meta.CreateProject("u1", "widgets", "")
	require.NoError(t, err)
	require.NoError(t, meta.UpdateProjectFields(project.ID, map[string]interface{}{"status": string(metadata.StatusActive)}))

	_, err = e.ActivateProject(context.Background(), project.ID)
	require.Error(t, err)
	assert.Equal(t, cperrors.KindConflict, cperrors.KindOf(err))
}

func TestDeactivateProject_ScalesAndClearsEndpoint(t *testing.T) {
	e, meta := newTestEngine(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)
	project, err := meta.CreateProject("u1", "widgets", "")
	require.NoError(t, err)
	require.NoError(t, meta.UpdateProjectFields(project.ID, map[string]interface{}{
		"status":   string(metadata.StatusActive),
		"endpoint": "proj-" + project.ID + "-api.user-u1.svc.cluster.local:80",
	}))
	seedDeployment(t, e, renderer.NamespaceName("u1"), project.ID)

	updated, err := e.DeactivateProject(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Equal(t, metadata.StatusInactive, updated.Status)
	assert.Empty(t, updated.Endpoint)
}

func TestDeactivateProject_RejectsFromInactive(t *testing.T) {
	e, meta := newTestEngine(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)
	project, err := meta.CreateProject("u1", "widgets", "")
	require.NoError(t, err)

	_, err = e.DeactivateProject(context.Background(), project.ID)
	require.Error(t, err)
	assert.Equal(t, cperrors.KindConflict, cperrors.KindOf(err))
}

func TestDeleteProject_RemovesRecordAndIsIdempotentNotFound(t *testing.T) {
	e, meta := newTestEngine(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)
	project, err := meta.CreateProject("u1", "widgets", "")
	require.NoError(t, err)

	require.NoError(t, e.DeleteProject(context.Background(), project.ID))

	_, err = meta.GetProject(project.ID)
	require.Error(t, err)
	assert.Equal(t, cperrors.KindNotFound, cperrors.KindOf(err))

	err = e.DeleteProject(context.Background(), project.ID)
	require.Error(t, err)
	assert.Equal(t, cperrors.KindNotFound, cperrors.KindOf(err))
}

func TestUpdateSettings_RejectsUnknownKey(t *testing.T) {
	e, meta := newTestEngine(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)
	project, err := meta.CreateProject("u1", "widgets", "")
	require.NoError(t, err)

	_, err = e.UpdateSettings(context.Background(), project.ID, []SettingChange{{Key: "not_a_setting", Value: "x"}})
	require.Error(t, err)
	assert.Equal(t, cperrors.KindInvalidArgument, cperrors.KindOf(err))
}

func TestUpdateSettings_ReportsRestartRequiredForRestartKey(t *testing.T) {
	e, meta := newTestEngine(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)
	project, err := meta.CreateProject("u1", "widgets", "")
	require.NoError(t, err)

	result, err := e.UpdateSettings(context.Background(), project.ID, []SettingChange{{Key: "model", Value: "claude-opus"}})
	require.NoError(t, err)
	assert.True(t, result.RestartRequired)

	settings, err := meta.ListSettings(project.ID)
	require.NoError(t, err)
	require.Len(t, settings, 1)
	assert.Equal(t, "claude-opus", settings[0].Value)
}

func TestUpdateSettings_RejectsNonNumericValues(t *testing.T) {
	e, meta := newTestEngine(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)
	project, err := meta.CreateProject("u1", "widgets", "")
	require.NoError(t, err)

	_, err = e.UpdateSettings(context.Background(), project.ID, []SettingChange{{Key: "max_tokens", Value: "abc"}})
	require.Error(t, err)
	assert.Equal(t, cperrors.KindInvalidArgument, cperrors.KindOf(err))

	_, err = e.UpdateSettings(context.Background(), project.ID, []SettingChange{{Key: "temperature", Value: "warm"}})
	require.Error(t, err)
	assert.Equal(t, cperrors.KindInvalidArgument, cperrors.KindOf(err))

	_, err = e.UpdateSettings(context.Background(), project.ID, []SettingChange{{Key: "max_tokens", Value: "8192"}})
	require.NoError(t, err)
	_, err = e.UpdateSettings(context.Background(), project.ID, []SettingChange{{Key: "temperature", Value: "0.2"}})
	require.NoError(t, err)
}

func TestUpdateSettings_RejectsInvalidEnumValue(t *testing.T) {
	e, meta := newTestEngine(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)
	project, err := meta.CreateProject("u1", "widgets", "")
	require.NoError(t, err)

	_, err = e.UpdateSettings(context.Background(), project.ID, []SettingChange{{Key: "log_level", Value: "verbose"}})
	require.Error(t, err)
	assert.Equal(t, cperrors.KindInvalidArgument, cperrors.KindOf(err))
}

func TestUpdateGithubToken_FallsBackToUserToken(t *testing.T) {
	e, meta := newTestEngine(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)
	userToken := "user-token"
	require.NoError(t, meta.SetUserGithubToken("u1", &userToken))

	project, err := meta.CreateProject("u1", "widgets", "")
	require.NoError(t, err)
	projectToken := "project-token"
	require.NoError(t, e.UpdateGithubToken(context.Background(), project.ID, &projectToken))

	fetched, err := meta.GetProject(project.ID)
	require.NoError(t, err)
	assert.Equal(t, metadata.SourceProject, fetched.GithubKeySource)

	require.NoError(t, e.UpdateGithubToken(context.Background(), project.ID, nil))
	fetched, err = meta.GetProject(project.ID)
	require.NoError(t, err)
	assert.Equal(t, metadata.SourceUser, fetched.GithubKeySource)
	assert.False(t, fetched.GithubKeySet)
}

func TestUpdateUserGlobalToken_UpdatesUserRecord(t *testing.T) {
	e, meta := newTestEngine(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)

	userScoped, err := meta.CreateProject("u1", "a", "")
	require.NoError(t, err)
	require.NoError(t, meta.UpdateProjectFields(userScoped.ID, map[string]interface{}{"status": string(metadata.StatusActive)}))
	require.NoError(t, meta.SetProjectGithubToken(userScoped.ID, nil, metadata.SourceUser))
	seedDeployment(t, e, renderer.NamespaceName("u1"), userScoped.ID)

	projectScoped, err := meta.CreateProject("u1", "b", "")
	require.NoError(t, err)
	token := "proj-token"
	require.NoError(t, meta.SetProjectGithubToken(projectScoped.ID, &token, metadata.SourceProject))
	require.NoError(t, meta.UpdateProjectFields(projectScoped.ID, map[string]interface{}{"status": string(metadata.StatusActive)}))

	newUserToken := "new-user-token"
	require.NoError(t, e.UpdateUserGlobalToken(context.Background(), "u1", &newUserToken))

	user, err := meta.GetUser("u1")
	require.NoError(t, err)
	assert.Equal(t, newUserToken, user.GithubToken)
}

func TestUpsertExtension_StoresExtension(t *testing.T) {
	e, meta := newTestEngine(t)
	_, err := meta.UpsertUser("u1", "Ada")
	require.NoError(t, err)
	project, err := meta.CreateProject("u1", "widgets", "")
	require.NoError(t, err)

	require.NoError(t, e.UpsertExtension(context.Background(), project.ID, &metadata.Extension{
		Name: "fetch", Kind: metadata.ExtensionBuiltin, Enabled: true,
	}))

	extensions, err := meta.ListExtensions(project.ID)
	require.NoError(t, err)
	require.Len(t, extensions, 1)
	assert.Equal(t, "fetch", extensions[0].Name)
}
