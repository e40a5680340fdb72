// Package pilot orchestrates template driven resource synthesis against a
// cluster: deploying autoscaled workloads, updating their autoscaling
// policies, and answering pass-through state queries.
package pilot

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/kubepilot/kubepilot/internal"
	"github.com/kubepilot/kubepilot/internal/k8s"
	"github.com/kubepilot/kubepilot/internal/template"
)

type Client struct {
	k8s       *k8s.Client
	templates template.Store
}

// NewClient wires the orchestration client over an explicitly constructed
// gateway; the gateway's credential/session state is shared read-only across
// concurrent requests.
func NewClient(gateway *k8s.Client, templates template.Store) *Client {
	return &Client{k8s: gateway, templates: templates}
}

func FromKubeConfig(kubeconfig, templateDir string) (*Client, error) {
	gateway, err := k8s.NewClientFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, err
	}
	return NewClient(gateway, template.NewStore(templateDir)), nil
}

// CheckCluster issues a lightweight version call to confirm the cluster is
// reachable with the loaded credentials.
func (client *Client) CheckCluster(ctx context.Context) (string, error) {
	defer internal.DebugTimer(ctx, "check cluster")()

	info, err := client.k8s.ServerVersion()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Kubernetes cluster connection successful. Server version: %s", info.GitVersion), nil
}

// Deploy synthesizes the workload, endpoint and scaled object documents for
// the request and submits them to the cluster in that fixed order.
//
// Submission is sequential and fire-and-forget: workload readiness is not
// awaited before the dependent resources are created, and there is no
// compensating rollback. When a later step fails, earlier side effects remain
// in place; callers must treat a failure as "some subset may exist" and
// reconcile idempotently on retry.
func (client *Client) Deploy(ctx context.Context, request DeploymentRequest) error {
	resources, err := synthesize(client.templates, request)
	if err != nil {
		return err
	}

	for _, resource := range []*unstructured.Unstructured{resources.workload, resources.endpoint, resources.scaledObject} {
		if content, err := internal.ToYAML(resource); err == nil {
			internal.Debug(ctx).Printf("rendered %s:\n%s\n", internal.Canonical(resource), content)
		}
	}

	if err := client.k8s.CreateWorkload(ctx, request.Namespace, resources.workload); err != nil {
		return fmt.Errorf("failed to create workload: %w", err)
	}
	if err := client.k8s.CreateEndpoint(ctx, request.Namespace, resources.endpoint); err != nil {
		return fmt.Errorf("failed to create endpoint: %w", err)
	}
	if err := client.k8s.CreateScaledObject(ctx, request.Namespace, resources.scaledObject); err != nil {
		return fmt.Errorf("failed to create scaled object: %w", err)
	}

	return nil
}

// UpdateScaledObject fetches the current policy, replaces only the scaling
// bounds and the trigger list (a single trigger replacing any existing
// configuration), and writes the whole object back. Every other field of the
// fetched copy is resubmitted verbatim.
//
// No optimistic concurrency check is performed: two updaters racing on the
// same policy resolve last-write-wins. Callers serialize updates externally
// if they need stronger guarantees.
func (client *Client) UpdateScaledObject(ctx context.Context, params UpdateScaledObjectParams) error {
	if params.MinReplicas < 0 || params.MaxReplicas < params.MinReplicas {
		return internal.ValidationError("replica bounds must satisfy 0 <= minReplicas <= maxReplicas")
	}

	current, err := client.k8s.GetScaledObject(ctx, params.Namespace, params.Name)
	if err != nil {
		return err
	}

	if err := unstructured.SetNestedField(current.Object, int64(params.MinReplicas), "spec", "minReplicaCount"); err != nil {
		return err
	}
	if err := unstructured.SetNestedField(current.Object, int64(params.MaxReplicas), "spec", "maxReplicaCount"); err != nil {
		return err
	}

	trigger := map[string]any{
		"type":     params.TriggerType,
		"metadata": params.TriggerMetadata,
	}
	if err := unstructured.SetNestedSlice(current.Object, []any{trigger}, "spec", "triggers"); err != nil {
		return err
	}

	return client.k8s.ReplaceScaledObject(ctx, params.Namespace, current)
}

func (client *Client) Health(ctx context.Context, namespace, name string) (HealthStatus, error) {
	deployment, err := client.k8s.GetWorkload(ctx, namespace, name)
	if err != nil {
		return HealthStatus{}, err
	}

	var desired int32
	if deployment.Spec.Replicas != nil {
		desired = *deployment.Spec.Replicas
	}

	return HealthStatus{
		DeploymentName:    name,
		Namespace:         namespace,
		AvailableReplicas: deployment.Status.AvailableReplicas,
		DesiredReplicas:   desired,
	}, nil
}

func (client *Client) Namespaces(ctx context.Context) ([]string, error) {
	return client.k8s.ListNamespaces(ctx)
}

func (client *Client) Workloads(ctx context.Context, namespace string) ([]string, error) {
	return client.k8s.ListWorkloads(ctx, namespace)
}

func (client *Client) Endpoints(ctx context.Context, namespace string) ([]string, error) {
	return client.k8s.ListEndpoints(ctx, namespace)
}

func (client *Client) Pods(ctx context.Context, namespace string) ([]string, error) {
	return client.k8s.ListPods(ctx, namespace)
}
