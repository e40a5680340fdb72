package pilot

import (
	"github.com/kubepilot/kubepilot/internal"
)

// DeploymentRequest describes one autoscaled workload to materialize:
// the workload itself, its network endpoint, and its autoscaling policy.
// Immutable for the duration of one orchestration call.
type DeploymentRequest struct {
	Name                 string             `json:"name"`
	Namespace            string             `json:"namespace"`
	Image                string             `json:"image"`
	CPURequest           string             `json:"cpu_request,omitempty"`
	MemoryRequest        string             `json:"memory_request,omitempty"`
	CPULimit             string             `json:"cpu_limit,omitempty"`
	MemoryLimit          string             `json:"memory_limit,omitempty"`
	Ports                internal.List[int] `json:"ports"`
	EnvironmentVariables map[string]string  `json:"environment_variables,omitempty"`
	MinReplicas          int                `json:"min_replicas"`
	MaxReplicas          int                `json:"max_replicas"`
	EventSourceType      string             `json:"event_source_type"`
	// EventSourceMetadata is JSON text describing the trigger parameters.
	EventSourceMetadata string `json:"event_source_metadata"`
}

// HealthStatus reports available versus desired replica counts for a workload.
type HealthStatus struct {
	DeploymentName    string `json:"deployment_name"`
	Namespace         string `json:"namespace"`
	AvailableReplicas int32  `json:"available_replicas"`
	DesiredReplicas   int32  `json:"desired_replicas"`
}

// UpdateScaledObjectParams carries the new scaling bounds and trigger for an
// existing autoscaling policy. TriggerMetadata must already be structured
// data; use ParseTriggerMetadata to decode caller supplied text.
type UpdateScaledObjectParams struct {
	Namespace       string
	Name            string
	MinReplicas     int
	MaxReplicas     int
	TriggerType     string
	TriggerMetadata map[string]any
}
