package pilot

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/kubepilot/kubepilot/internal"
	"github.com/kubepilot/kubepilot/internal/template"
)

type renderedResources struct {
	workload     *unstructured.Unstructured
	endpoint     *unstructured.Unstructured
	scaledObject *unstructured.Unstructured
}

// synthesize renders the three resource documents for a deployment request
// from one shared replacement mapping.
func synthesize(store template.Store, request DeploymentRequest) (*renderedResources, error) {
	replacements, err := buildReplacements(request)
	if err != nil {
		return nil, err
	}

	workload, err := renderKind(store, template.Workload, replacements)
	if err != nil {
		return nil, err
	}

	endpoint, err := renderKind(store, template.Endpoint, replacements)
	if err != nil {
		return nil, err
	}

	scaledObject, err := renderKind(store, template.ScaledObject, replacements)
	if err != nil {
		return nil, err
	}
	if err := structureTriggerMetadata(scaledObject); err != nil {
		return nil, err
	}

	return &renderedResources{workload: workload, endpoint: endpoint, scaledObject: scaledObject}, nil
}

// buildReplacements derives the replacement mapping shared by all three
// templates. Only the first port and the first environment variable pair are
// exposed to templates; callers needing more must extend the templates and
// this mapping.
func buildReplacements(request DeploymentRequest) (map[string]any, error) {
	if len(request.Ports) == 0 {
		return nil, internal.ValidationError("ports must not be empty")
	}
	if request.MinReplicas < 0 || request.MaxReplicas < request.MinReplicas {
		return nil, internal.ValidationError("replica bounds must satisfy 0 <= min_replicas <= max_replicas")
	}

	envName, envValue := firstEnvPair(request.EnvironmentVariables)

	metadata, err := embeddableTriggerMetadata(request.EventSourceMetadata)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"name":                  request.Name,
		"namespace":             request.Namespace,
		"image":                 request.Image,
		"cpu_request":           request.CPURequest,
		"memory_request":        request.MemoryRequest,
		"cpu_limit":             request.CPULimit,
		"memory_limit":          request.MemoryLimit,
		"port":                  request.Ports[0],
		"env_name":              envName,
		"env_value":             envValue,
		"min_replicas":          request.MinReplicas,
		"max_replicas":          request.MaxReplicas,
		"event_source_type":     request.EventSourceType,
		"event_source_metadata": metadata,
	}, nil
}

func renderKind(store template.Store, kind template.Kind, replacements map[string]any) (*unstructured.Unstructured, error) {
	raw, err := store.Load(kind)
	if err != nil {
		return nil, err
	}

	resource, err := template.Render(string(kind), raw, replacements)
	if err != nil {
		return nil, err
	}

	coerceNumerics(resource.Object)

	return resource, nil
}

// firstEnvPair picks the representative environment variable pair: the first
// in key order, or empty strings when none were supplied.
func firstEnvPair(env map[string]string) (string, string) {
	if len(env) == 0 {
		return "", ""
	}

	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys[0], env[keys[0]]
}

// ParseTriggerMetadata decodes caller supplied trigger metadata text into a
// structured mapping. Metadata can originate from untrusted input so it only
// ever passes through a JSON parse, never any form of expression evaluation.
func ParseTriggerMetadata(text string) (map[string]any, error) {
	metadata := map[string]any{}
	if strings.TrimSpace(text) == "" {
		return metadata, nil
	}
	if err := json.Unmarshal([]byte(text), &metadata); err != nil {
		return nil, internal.ValidationError(fmt.Sprintf("event source metadata is not a valid JSON mapping: %v", err))
	}
	return metadata, nil
}

// embeddableTriggerMetadata re-serializes the trigger metadata to its compact
// JSON form and escapes it so it survives substitution inside the quoted
// scaled object template scalar until structureTriggerMetadata decodes it
// again after rendering.
func embeddableTriggerMetadata(text string) (string, error) {
	metadata, err := ParseTriggerMetadata(text)
	if err != nil {
		return "", err
	}

	compact, err := json.Marshal(metadata)
	if err != nil {
		return "", err
	}

	quoted, err := json.Marshal(string(compact))
	if err != nil {
		return "", err
	}

	return string(quoted[1 : len(quoted)-1]), nil
}

// structureTriggerMetadata decodes trigger metadata scalars embedded by
// embeddableTriggerMetadata back into structured mappings so the created
// policy carries real trigger parameters rather than JSON text.
func structureTriggerMetadata(scaledObject *unstructured.Unstructured) error {
	triggers, found, err := unstructured.NestedSlice(scaledObject.Object, "spec", "triggers")
	if err != nil || !found {
		return err
	}

	for _, trigger := range triggers {
		definition, ok := trigger.(map[string]any)
		if !ok {
			continue
		}
		text, ok := definition["metadata"].(string)
		if !ok {
			continue
		}

		var metadata map[string]any
		if err := json.Unmarshal([]byte(text), &metadata); err != nil {
			continue
		}
		definition["metadata"] = metadata
	}

	return unstructured.SetNestedSlice(scaledObject.Object, triggers, "spec", "triggers")
}

// Templates quote every placeholder so substitution always yields valid
// JSON; fields the platform types as integers are coerced back afterwards.
var numericFields = map[string]bool{
	"replicas":        true,
	"containerPort":   true,
	"port":            true,
	"targetPort":      true,
	"minReplicaCount": true,
	"maxReplicaCount": true,
}

func coerceNumerics(value any) {
	switch typed := value.(type) {
	case map[string]any:
		for key, element := range typed {
			if numericFields[key] {
				if text, ok := element.(string); ok {
					if number, err := strconv.ParseInt(text, 10, 64); err == nil {
						typed[key] = number
						continue
					}
				}
			}
			coerceNumerics(element)
		}
	case []any:
		for _, element := range typed {
			coerceNumerics(element)
		}
	}
}
