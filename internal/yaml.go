package internal

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// ToYAML renders a resource as indented YAML for debug output.
func ToYAML(resource *unstructured.Unstructured) (string, error) {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(2)
	if err := encoder.Encode(resource.Object); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

// Canonical identifies a resource by namespace, api version, kind and name.
func Canonical(resource *unstructured.Unstructured) string {
	segments := []string{
		resource.GetNamespace(),
		resource.GetAPIVersion(),
		strings.ToLower(resource.GetKind()),
		resource.GetName(),
	}

	nonEmpty := segments[:0]
	for _, segment := range segments {
		if segment != "" {
			nonEmpty = append(nonEmpty, segment)
		}
	}

	return strings.Join(nonEmpty, ".")
}
