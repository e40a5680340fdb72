package template

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/kubepilot/kubepilot/internal"
)

var sample = []byte(`
apiVersion: v1
kind: ConfigMap
metadata:
  name: "{name}"
  namespace: "{namespace}"
data:
  image: "{image}"
  missing: "{missing}"
`)

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	resource, err := Render("sample", sample, map[string]any{
		"name":      "web",
		"namespace": "default",
		"image":     "nginx:1.25",
	})
	require.NoError(t, err)

	require.Equal(t, "web", resource.GetName())
	require.Equal(t, "default", resource.GetNamespace())

	image, _, err := unstructured.NestedString(resource.Object, "data", "image")
	require.NoError(t, err)
	require.Equal(t, "nginx:1.25", image)
}

func TestRenderLeavesUnmatchedPlaceholdersVerbatim(t *testing.T) {
	resource, err := Render("sample", sample, map[string]any{"name": "web"})
	require.NoError(t, err)

	missing, _, err := unstructured.NestedString(resource.Object, "data", "missing")
	require.NoError(t, err)
	require.Equal(t, "{missing}", missing)
}

func TestRenderIgnoresKeysAbsentFromTemplate(t *testing.T) {
	with, err := Render("sample", sample, map[string]any{"name": "web"})
	require.NoError(t, err)

	without, err := Render("sample", sample, map[string]any{"name": "web", "unrelated": "value"})
	require.NoError(t, err)

	require.Equal(t, with.Object, without.Object)
}

func TestRenderStringifiesValues(t *testing.T) {
	raw := []byte(`
data:
  count: "{count}"
  enabled: "{enabled}"
`)

	resource, err := Render("sample", raw, map[string]any{"count": 42, "enabled": true})
	require.NoError(t, err)

	count, _, err := unstructured.NestedString(resource.Object, "data", "count")
	require.NoError(t, err)
	require.Equal(t, "42", count)

	enabled, _, err := unstructured.NestedString(resource.Object, "data", "enabled")
	require.NoError(t, err)
	require.Equal(t, "true", enabled)
}

func TestRenderIsSinglePass(t *testing.T) {
	raw := []byte(`
data:
  value: "{outer}"
`)

	// A substituted value containing {name} literal text stays verbatim even
	// though name is itself a replacement key: substituted text is never
	// rescanned. Caller supplied values must not be able to smuggle further
	// substitutions in.
	replacements := map[string]any{
		"outer": "{name}",
		"name":  "cascaded",
	}

	for range 100 {
		resource, err := Render("sample", raw, replacements)
		require.NoError(t, err)

		value, _, err := unstructured.NestedString(resource.Object, "data", "value")
		require.NoError(t, err)
		require.Equal(t, "{name}", value)
	}
}

func TestRenderEmitsNilMarker(t *testing.T) {
	raw := []byte(`
data:
  cpu: "{cpu_request}"
`)

	resource, err := Render("sample", raw, map[string]any{"cpu_request": nil})
	require.NoError(t, err)

	cpu, _, err := unstructured.NestedString(resource.Object, "data", "cpu")
	require.NoError(t, err)
	require.Equal(t, "<nil>", cpu)
}

func TestRenderOutputIsStableUnderRerender(t *testing.T) {
	replacements := map[string]any{
		"name":      "web",
		"namespace": "default",
		"image":     "nginx:1.25",
	}

	resource, err := Render("sample", sample, replacements)
	require.NoError(t, err)

	// JSON is a subset of YAML so the rendered document round-trips through
	// the renderer unchanged when no key collides with its literal content.
	rendered, err := json.Marshal(resource.Object)
	require.NoError(t, err)

	again, err := Render("sample", rendered, replacements)
	require.NoError(t, err)
	require.Equal(t, resource.Object, again.Object)
}

func TestRenderMalformedTemplate(t *testing.T) {
	_, err := Render("sample", []byte("a: [unclosed"), nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, internal.TemplateParseError{}))
}

func TestStoreServesBundledTemplates(t *testing.T) {
	store := NewStore("")

	for _, kind := range []Kind{Workload, Endpoint, ScaledObject} {
		data, err := store.Load(kind)
		require.NoError(t, err)
		require.NotEmpty(t, data)
	}

	_, err := store.Load(Kind("bogus.yml"))
	require.ErrorIs(t, err, internal.ErrTemplateNotFound)
}

func TestStoreDirOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, string(Workload)), []byte("kind: Deployment"), 0o644))

	store := NewStore(dir)

	data, err := store.Load(Workload)
	require.NoError(t, err)
	require.Equal(t, "kind: Deployment", string(data))

	_, err = store.Load(Endpoint)
	require.ErrorIs(t, err, internal.ErrTemplateNotFound)
}
