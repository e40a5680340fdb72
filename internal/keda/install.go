// Package keda bootstraps the autoscaler controller into the cluster from a
// packaged helm chart. This is a one-time environment bootstrap invoked at
// process start, never during request handling.
package keda

import (
	"context"
	"fmt"
	"os"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/meta"

	"github.com/davidmdm/x/xerr"

	"github.com/kubepilot/kubepilot/internal"
	"github.com/kubepilot/kubepilot/internal/k8s"
)

const (
	// Namespace the controller is installed into.
	Namespace = "keda"

	release          = "keda"
	operatorSelector = "app=keda-operator"
)

type Installer struct {
	client *k8s.Client
}

func NewInstaller(client *k8s.Client) Installer {
	return Installer{client: client}
}

// Install renders the controller chart archive at chartPath and applies the
// resulting resources, then verifies the operator came up.
func (installer Installer) Install(ctx context.Context, chartPath string) error {
	data, err := os.ReadFile(chartPath)
	if err != nil {
		return fmt.Errorf("failed to read chart archive: %w", err)
	}

	chart, err := LoadChartFromArchive(data)
	if err != nil {
		return fmt.Errorf("failed to load chart: %w", err)
	}

	resources, err := chart.Render(release, Namespace, nil)
	if err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}

	if err := installer.client.EnsureNamespace(ctx, Namespace); err != nil {
		return fmt.Errorf("failed to ensure namespace %q: %w", Namespace, err)
	}

	var errs []error
	for _, resource := range resources {
		if resource.GetNamespace() == "" {
			if mapping, err := installer.client.LookupResourceMapping(resource); err == nil && mapping.Scope.Name() == meta.RESTScopeNameNamespace {
				resource.SetNamespace(Namespace)
			}
		}
		if err := installer.client.ApplyResource(ctx, resource); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", internal.Canonical(resource), err))
		}
	}
	if err := xerr.MultiErrOrderedFrom("failed to apply controller resources", errs...); err != nil {
		return err
	}

	return installer.Verify(ctx)
}

// Verify confirms the controller operator pods exist and are running.
func (installer Installer) Verify(ctx context.Context) error {
	pods, err := installer.client.PodsBySelector(ctx, Namespace, operatorSelector)
	if err != nil {
		return err
	}
	if len(pods) == 0 {
		return fmt.Errorf("no operator pods found in namespace %q", Namespace)
	}

	var errs []error
	for _, pod := range pods {
		if pod.Status.Phase != corev1.PodRunning {
			errs = append(errs, fmt.Errorf("pod %s is %s", pod.Name, pod.Status.Phase))
		}
	}

	return xerr.MultiErrOrderedFrom("operator is not ready", errs...)
}
