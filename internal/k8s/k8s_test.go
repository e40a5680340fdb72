package k8s

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	kerrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	k8sfake "k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/kubepilot/kubepilot/internal"
)

func newFakeGateway(objects ...runtime.Object) (*Client, *k8sfake.Clientset, *dynamicfake.FakeDynamicClient) {
	scheme := runtime.NewScheme()
	listKinds := map[schema.GroupVersionResource]string{
		DeploymentGVR:   "DeploymentList",
		ServiceGVR:      "ServiceList",
		ScaledObjectGVR: "ScaledObjectList",
	}

	clientset := k8sfake.NewSimpleClientset(objects...)
	dynamicClient := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, listKinds)

	return NewClientWithBackends(clientset, dynamicClient, nil), clientset, dynamicClient
}

func TestNewClientFromKubeConfigMissingFile(t *testing.T) {
	_, err := NewClientFromKubeConfig(filepath.Join(t.TempDir(), "kubeconfig"))
	require.ErrorIs(t, err, internal.ErrCredentialsNotFound)
}

func TestListNamespaces(t *testing.T) {
	gateway, _, _ := newFakeGateway(
		&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "default"}},
		&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "keda"}},
	)

	names, err := gateway.ListNamespaces(context.Background())
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"default", "keda"}, names)
}

func TestListWorkloadsScopedToNamespace(t *testing.T) {
	gateway, _, _ := newFakeGateway(
		&appsv1.Deployment{ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "default"}},
		&appsv1.Deployment{ObjectMeta: metav1.ObjectMeta{Name: "worker", Namespace: "other"}},
	)

	names, err := gateway.ListWorkloads(context.Background(), "default")
	require.NoError(t, err)
	require.Equal(t, []string{"web"}, names)
}

func TestListEndpointsAndPods(t *testing.T) {
	gateway, _, _ := newFakeGateway(
		&corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "web-svc", Namespace: "default"}},
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "web-123", Namespace: "default"}},
	)

	services, err := gateway.ListEndpoints(context.Background(), "default")
	require.NoError(t, err)
	require.Equal(t, []string{"web-svc"}, services)

	pods, err := gateway.ListPods(context.Background(), "default")
	require.NoError(t, err)
	require.Equal(t, []string{"web-123"}, pods)
}

func TestGetScaledObjectNotFound(t *testing.T) {
	gateway, _, _ := newFakeGateway()

	_, err := gateway.GetScaledObject(context.Background(), "default", "missing")
	require.ErrorIs(t, err, internal.ErrNotFound)
}

func TestGetWorkloadNotFound(t *testing.T) {
	gateway, _, _ := newFakeGateway()

	_, err := gateway.GetWorkload(context.Background(), "default", "missing")
	require.ErrorIs(t, err, internal.ErrNotFound)
}

func TestUpstreamStatusPreserved(t *testing.T) {
	gateway, clientset, _ := newFakeGateway()

	clientset.PrependReactor("list", "pods", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, kerrors.NewBadRequest("selector is malformed")
	})

	_, err := gateway.ListPods(context.Background(), "default")
	require.Error(t, err)

	var apiErr internal.ClusterAPIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 400, apiErr.Status)
	require.Contains(t, apiErr.Message, "selector is malformed")
}

func TestEnsureNamespaceIsIdempotent(t *testing.T) {
	gateway, _, _ := newFakeGateway()

	require.NoError(t, gateway.EnsureNamespace(context.Background(), "keda"))
	require.NoError(t, gateway.EnsureNamespace(context.Background(), "keda"))
}

func TestPodsBySelector(t *testing.T) {
	gateway, _, _ := newFakeGateway(
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "operator", Namespace: "keda", Labels: map[string]string{"app": "keda-operator"}}},
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "bystander", Namespace: "keda"}},
	)

	pods, err := gateway.PodsBySelector(context.Background(), "keda", "app=keda-operator")
	require.NoError(t, err)
	require.Len(t, pods, 1)
	require.Equal(t, "operator", pods[0].Name)
}
