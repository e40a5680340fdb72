package k8s

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	corev1 "k8s.io/api/core/v1"
	kerrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/version"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/kubepilot/kubepilot/internal"
)

const fieldManager = "kubepilot"

// GVRs of the resource kinds the gateway submits. The scaled object resource
// belongs to the KEDA controller's API group and is reached through the
// dynamic client since no typed client exists for it.
var (
	DeploymentGVR   = schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"}
	ServiceGVR      = schema.GroupVersionResource{Version: "v1", Resource: "services"}
	ScaledObjectGVR = schema.GroupVersionResource{Group: "keda.sh", Version: "v1alpha1", Resource: "scaledobjects"}
)

// Client is a thin typed gateway over the cluster control-plane API.
// Every method issues a single blocking call reflecting live cluster state:
// no retries, no caching. It is safe for concurrent use; the underlying
// clients hold no per-call state.
type Client struct {
	clientset kubernetes.Interface
	dynamic   dynamic.Interface
	mapper    meta.RESTMapper
}

// NewClientFromKubeConfig builds a client from a kubeconfig file. A leading
// "~" in the path is expanded against the user's home directory. A missing
// file reports internal.ErrCredentialsNotFound.
func NewClientFromKubeConfig(path string) (*Client, error) {
	expanded := path
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		expanded = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	if _, err := os.Stat(expanded); err != nil {
		return nil, fmt.Errorf("%w: %s", internal.ErrCredentialsNotFound, path)
	}

	restcfg, err := clientcmd.BuildConfigFromFlags("", expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to build kubernetes config: %w", err)
	}

	return NewClient(restcfg)
}

func NewClient(cfg *rest.Config) (*Client, error) {
	dynamicClient, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client component: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	return &Client{
		clientset: clientset,
		dynamic:   dynamicClient,
		mapper:    restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(clientset.Discovery())),
	}, nil
}

// NewClientWithBackends wires the gateway over caller supplied clients.
// Used by tests to substitute fakes; the mapper may be nil when dynamic
// resource resolution by kind is not exercised.
func NewClientWithBackends(clientset kubernetes.Interface, dynamicClient dynamic.Interface, mapper meta.RESTMapper) *Client {
	return &Client{clientset: clientset, dynamic: dynamicClient, mapper: mapper}
}

// ServerVersion is the lightweight reachability probe issued at bootstrap.
func (client Client) ServerVersion() (*version.Info, error) {
	info, err := client.clientset.Discovery().ServerVersion()
	if err != nil {
		return nil, mapErr(err)
	}
	return info, nil
}

func (client Client) CreateWorkload(ctx context.Context, namespace string, resource *unstructured.Unstructured) error {
	defer internal.DebugTimer(ctx, "create workload "+internal.Canonical(resource))()

	_, err := client.dynamic.Resource(DeploymentGVR).Namespace(namespace).Create(ctx, resource, metav1.CreateOptions{FieldManager: fieldManager})
	return mapErr(err)
}

func (client Client) CreateEndpoint(ctx context.Context, namespace string, resource *unstructured.Unstructured) error {
	defer internal.DebugTimer(ctx, "create endpoint "+internal.Canonical(resource))()

	_, err := client.dynamic.Resource(ServiceGVR).Namespace(namespace).Create(ctx, resource, metav1.CreateOptions{FieldManager: fieldManager})
	return mapErr(err)
}

func (client Client) CreateScaledObject(ctx context.Context, namespace string, resource *unstructured.Unstructured) error {
	defer internal.DebugTimer(ctx, "create scaled object "+internal.Canonical(resource))()

	_, err := client.dynamic.Resource(ScaledObjectGVR).Namespace(namespace).Create(ctx, resource, metav1.CreateOptions{FieldManager: fieldManager})
	return mapErr(err)
}

func (client Client) GetScaledObject(ctx context.Context, namespace, name string) (*unstructured.Unstructured, error) {
	resource, err := client.dynamic.Resource(ScaledObjectGVR).Namespace(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, mapErr(err)
	}
	return resource, nil
}

// ReplaceScaledObject resubmits the whole object. Concurrent writers race
// last-write-wins: no resource version check is performed.
func (client Client) ReplaceScaledObject(ctx context.Context, namespace string, resource *unstructured.Unstructured) error {
	defer internal.DebugTimer(ctx, "replace scaled object "+internal.Canonical(resource))()

	_, err := client.dynamic.Resource(ScaledObjectGVR).Namespace(namespace).Update(ctx, resource, metav1.UpdateOptions{FieldManager: fieldManager})
	return mapErr(err)
}

func (client Client) GetWorkload(ctx context.Context, namespace, name string) (*appsv1.Deployment, error) {
	deployment, err := client.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, mapErr(err)
	}
	return deployment, nil
}

func (client Client) ListNamespaces(ctx context.Context) ([]string, error) {
	list, err := client.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, mapErr(err)
	}

	names := make([]string, len(list.Items))
	for i, item := range list.Items {
		names[i] = item.Name
	}
	return names, nil
}

func (client Client) ListWorkloads(ctx context.Context, namespace string) ([]string, error) {
	list, err := client.clientset.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, mapErr(err)
	}

	names := make([]string, len(list.Items))
	for i, item := range list.Items {
		names[i] = item.Name
	}
	return names, nil
}

func (client Client) ListEndpoints(ctx context.Context, namespace string) ([]string, error) {
	list, err := client.clientset.CoreV1().Services(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, mapErr(err)
	}

	names := make([]string, len(list.Items))
	for i, item := range list.Items {
		names[i] = item.Name
	}
	return names, nil
}

func (client Client) ListPods(ctx context.Context, namespace string) ([]string, error) {
	list, err := client.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, mapErr(err)
	}

	names := make([]string, len(list.Items))
	for i, item := range list.Items {
		names[i] = item.Name
	}
	return names, nil
}

// PodsBySelector returns full pod objects so callers can inspect phase.
func (client Client) PodsBySelector(ctx context.Context, namespace, selector string) ([]corev1.Pod, error) {
	list, err := client.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, mapErr(err)
	}
	return list.Items, nil
}

// EnsureNamespace creates the namespace if it does not already exist.
func (client Client) EnsureNamespace(ctx context.Context, name string) error {
	namespace := corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}

	_, err := client.clientset.CoreV1().Namespaces().Create(ctx, &namespace, metav1.CreateOptions{FieldManager: fieldManager})
	if kerrors.IsAlreadyExists(err) {
		return nil
	}
	return mapErr(err)
}

// ApplyResource server-side applies a resource of any kind. Used by the
// controller bootstrap where rendered charts carry kinds the gateway has no
// dedicated operation for.
func (client Client) ApplyResource(ctx context.Context, resource *unstructured.Unstructured) error {
	defer internal.DebugTimer(ctx, "apply "+internal.Canonical(resource))()

	resourceInterface, err := client.GetDynamicResourceInterface(resource)
	if err != nil {
		return fmt.Errorf("failed to resolve resource: %w", err)
	}

	data, err := json.Marshal(resource)
	if err != nil {
		return err
	}

	_, err = resourceInterface.Patch(ctx, resource.GetName(), types.ApplyPatchType, data, metav1.PatchOptions{FieldManager: fieldManager})
	return mapErr(err)
}

func (client Client) GetDynamicResourceInterface(resource *unstructured.Unstructured) (dynamic.ResourceInterface, error) {
	mapping, err := client.LookupResourceMapping(resource)
	if err != nil {
		return nil, err
	}
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		return client.dynamic.Resource(mapping.Resource).Namespace(resource.GetNamespace()), nil
	}
	return client.dynamic.Resource(mapping.Resource), nil
}

func (client Client) LookupResourceMapping(resource *unstructured.Unstructured) (*meta.RESTMapping, error) {
	if client.mapper == nil {
		return nil, errors.New("no rest mapper configured")
	}
	gvk := schema.FromAPIVersionAndKind(resource.GetAPIVersion(), resource.GetKind())
	return client.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
}

// mapErr translates upstream control-plane failures into the gateway's error
// taxonomy. Not-found keeps its identity; everything else surfaces as a
// ClusterAPIError carrying the upstream status code and message.
func mapErr(err error) error {
	if err == nil {
		return nil
	}

	if kerrors.IsNotFound(err) {
		return fmt.Errorf("%w: %s", internal.ErrNotFound, err.Error())
	}

	var status kerrors.APIStatus
	if errors.As(err, &status) {
		message := status.Status().Message
		if message == "" {
			message = err.Error()
		}
		return internal.ClusterAPIError{Status: int(status.Status().Code), Message: message}
	}

	return internal.ClusterAPIError{Message: err.Error()}
}
