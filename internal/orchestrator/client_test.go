package orchestrator

import (
	"context"
	"testing"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() (*Client, *fake.Clientset) {
	cs := fake.NewSimpleClientset()
	return NewClientFromInterface(cs, zerolog.Nop()), cs
}

func TestEnsureNamespace_CreatesWhenMissing(t *testing.T) {
	c, cs := testClient()
	ctx := context.Background()

	err := c.EnsureNamespace(ctx, "user-u1", map[string]string{"role": "project-workload"}, nil)
	require.NoError(t, err)

	ns, err := cs.CoreV1().Namespaces().Get(ctx, "user-u1", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "project-workload", ns.Labels["role"])
}

func TestEnsureNamespace_Idempotent(t *testing.T) {
	c, _ := testClient()
	ctx := context.Background()
	labels := map[string]string{"role": "project-workload"}

	require.NoError(t, c.EnsureNamespace(ctx, "user-u1", labels, nil))
	require.NoError(t, c.EnsureNamespace(ctx, "user-u1", labels, nil))
}

func TestApplyConfigMap_CreateThenUpdate(t *testing.T) {
	c, cs := testClient()
	ctx := context.Background()

	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "proj-p1-env"},
		Data:       map[string]string{"USER_ID": "u1"},
	}
	require.NoError(t, c.ApplyConfigMap(ctx, "user-u1", cm))

	cm.Data["USER_ID"] = "u1-updated"
	require.NoError(t, c.ApplyConfigMap(ctx, "user-u1", cm))

	got, err := cs.CoreV1().ConfigMaps("user-u1").Get(ctx, "proj-p1-env", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "u1-updated", got.Data["USER_ID"])
}

func TestApplyDeployment_PreservesNameAcrossUpdate(t *testing.T) {
	c, cs := testClient()
	ctx := context.Background()

	one := int32(1)
	dep := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "proj-p1-api"},
		Spec:       appsv1.DeploymentSpec{Replicas: &one},
	}
	require.NoError(t, c.ApplyDeployment(ctx, "user-u1", dep))

	zero := int32(0)
	dep.Spec.Replicas = &zero
	require.NoError(t, c.ApplyDeployment(ctx, "user-u1", dep))

	got, err := cs.AppsV1().Deployments("user-u1").Get(ctx, "proj-p1-api", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, int32(0), *got.Spec.Replicas)
}

func TestDeleteNamespaced_AbsentIsNotError(t *testing.T) {
	c, _ := testClient()
	err := c.DeleteNamespaced(context.Background(), KindDeployment, "user-u1", "proj-p1-api")
	assert.NoError(t, err)
}

func TestReadServiceEndpoint_ClusterIP(t *testing.T) {
	c, cs := testClient()
	ctx := context.Background()

	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "proj-p1-api"},
		Spec:       corev1.ServiceSpec{Type: corev1.ServiceTypeClusterIP},
	}
	_, err := cs.CoreV1().Services("user-u1").Create(ctx, svc, metav1.CreateOptions{})
	require.NoError(t, err)

	endpoint, err := c.ReadServiceEndpoint(ctx, "user-u1", "proj-p1-api", 80)
	require.NoError(t, err)
	assert.Equal(t, "proj-p1-api.user-u1.svc.cluster.local:80", endpoint)
}

func TestGetPodStatus_ReadyDetection(t *testing.T) {
	c, cs := testClient()
	ctx := context.Background()

	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "proj-p1-api-abc", Namespace: "user-u1", Labels: map[string]string{"app": "proj-p1-api"}},
		Status: corev1.PodStatus{
			Phase:      corev1.PodRunning,
			Conditions: []corev1.PodCondition{{Type: corev1.PodReady, Status: corev1.ConditionTrue}},
		},
	}
	_, err := cs.CoreV1().Pods("user-u1").Create(ctx, pod, metav1.CreateOptions{})
	require.NoError(t, err)

	statuses, err := c.GetPodStatus(ctx, "user-u1", "app=proj-p1-api")
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Ready)
	assert.True(t, AnyRunningAndReady(statuses))
}
