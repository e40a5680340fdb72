package template

import (
	"encoding/json"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/yaml"

	"github.com/kubepilot/kubepilot/internal"
)

// Render substitutes named parameters into a template document and returns
// the concrete resource.
//
// The document is parsed from its YAML form, serialized to JSON text, and for
// every key in replacements each literal occurrence of the token {key} is
// replaced by the stringified value. The result is parsed back into a
// document tree. Substitution is a single pass with no escaping: unmatched
// placeholders pass through verbatim (intentional, so partially parameterized
// templates stay usable), and a value containing {otherKey} literal text is
// not substituted again.
func Render(name string, raw []byte, replacements map[string]any) (*unstructured.Unstructured, error) {
	var document map[string]any
	if err := yaml.Unmarshal(raw, &document); err != nil {
		return nil, internal.TemplateParseError{Name: name, Err: err}
	}

	data, err := json.Marshal(document)
	if err != nil {
		return nil, internal.TemplateParseError{Name: name, Err: err}
	}

	// A single Replacer pass never rescans substituted text, so a value
	// containing {otherKey} literal text stays verbatim even when otherKey is
	// in the replacement map.
	pairs := make([]string, 0, len(replacements)*2)
	for key, value := range replacements {
		pairs = append(pairs, "{"+key+"}", fmt.Sprint(value))
	}
	text := strings.NewReplacer(pairs...).Replace(string(data))

	var rendered map[string]any
	if err := json.Unmarshal([]byte(text), &rendered); err != nil {
		return nil, internal.TemplateParseError{Name: name, Err: fmt.Errorf("substitution produced an invalid document: %w", err)}
	}

	return &unstructured.Unstructured{Object: rendered}, nil
}
