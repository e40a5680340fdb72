// Package template holds the parameterized resource description documents and
// the placeholder renderer that turns them into concrete cluster resources.
package template

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kubepilot/kubepilot/internal"
)

//go:embed templates/*.yml
var builtin embed.FS

// Kind names one of the three resource templates. The value doubles as the
// template's file name, which is the contract with template authors.
type Kind string

const (
	Workload     Kind = "deployment.yml"
	Endpoint     Kind = "service.yml"
	ScaledObject Kind = "scaledobject.yml"
)

// Store serves the static template documents. Templates are read-only;
// rendering never mutates them in place. An empty dir serves the bundled
// defaults, otherwise documents are read from disk so operators can override
// the placeholder contract without rebuilding.
type Store struct {
	dir string
}

func NewStore(dir string) Store {
	return Store{dir: dir}
}

func (store Store) Load(kind Kind) ([]byte, error) {
	if store.dir != "" {
		data, err := os.ReadFile(filepath.Join(store.dir, string(kind)))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", internal.ErrTemplateNotFound, kind)
		}
		if err != nil {
			return nil, err
		}
		return data, nil
	}

	data, err := builtin.ReadFile("templates/" + string(kind))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", internal.ErrTemplateNotFound, kind)
	}
	return data, err
}
