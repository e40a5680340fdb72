package keda

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/chartutil"
	"helm.sh/helm/v3/pkg/engine"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/yaml"

	"github.com/davidmdm/x/xerr"

	"github.com/kubepilot/kubepilot/internal"
)

type Chart struct {
	*chart.Chart
}

// LoadChartFromArchive reads a packaged helm chart (.tgz) into memory.
func LoadChartFromArchive(data []byte) (result *Chart, err error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer func() {
		err = xerr.MultiErrFrom("", err, gz.Close())
	}()

	archive := tar.NewReader(gz)

	var files []*loader.BufferedFile
	for {
		header, err := archive.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate through archive: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		content, err := io.ReadAll(archive)
		if err != nil {
			return nil, err
		}

		files = append(files, &loader.BufferedFile{
			Name: header.Name,
			Data: content,
		})
	}

	return LoadChartFromFiles(files)
}

// LoadChartFromFiles builds a chart from in-memory files. File names are
// stripped to the directory containing Chart.yaml so helm recognizes them.
func LoadChartFromFiles(files []*loader.BufferedFile) (*Chart, error) {
	stripToChart(files)

	underlying, err := loader.LoadFiles(files)
	if err != nil {
		return nil, err
	}

	return &Chart{Chart: underlying}, nil
}

// Render evaluates the chart for the given release and namespace and returns
// the resulting resource documents sorted by canonical name.
func (chart Chart) Render(release, namespace string, values map[string]any) ([]*unstructured.Unstructured, error) {
	opts := chartutil.ReleaseOptions{
		Name:      release,
		Namespace: namespace,
	}

	if values == nil {
		values = map[string]any{}
	}

	renderValues, err := chartutil.ToRenderValues(chart.Chart, values, opts, chartutil.DefaultCapabilities.Copy())
	if err != nil {
		return nil, err
	}

	rendered, err := engine.Engine{}.Render(chart.Chart, renderValues)
	if err != nil {
		return nil, err
	}

	var results []*unstructured.Unstructured

	for name, content := range rendered {
		if ext := path.Ext(name); ext != ".yaml" && ext != ".yml" {
			continue
		}

		var resource unstructured.Unstructured
		if err := yaml.Unmarshal([]byte(content), &resource); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if resource.Object == nil {
			continue
		}
		results = append(results, &resource)
	}

	slices.SortFunc(results, func(a, b *unstructured.Unstructured) int {
		return strings.Compare(internal.Canonical(a), internal.Canonical(b))
	})

	return results, nil
}

// stripToChart removes the leading path segments before the nearest
// Chart.yaml; archives usually nest the chart one folder deep.
func stripToChart(files []*loader.BufferedFile) {
	idx := -1
	for _, file := range files {
		file.Name = path.Clean(file.Name)
		if path.Base(file.Name) != "Chart.yaml" {
			continue
		}
		if length := len(strings.Split(file.Name, "/")); idx == -1 || length < idx {
			idx = length
		}
	}
	if idx == -1 {
		return
	}

	for _, file := range files {
		file.Name = strings.Join(strings.Split(file.Name, "/")[idx-1:], "/")
	}
}
