// Package dataset reads problem data from YAML or JSON documents.
package dataset

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/andresuchdata/perishable-vss/internal/domain"
	"github.com/andresuchdata/perishable-vss/internal/storage"
)

//go:embed data/butlers_pantry.yaml
var defaultDataset []byte

// Parse decodes and validates a dataset. JSON documents are accepted too, since
// JSON is a subset of YAML.
func Parse(data []byte) (*domain.Dataset, error) {
	var ds domain.Dataset
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Default returns the built-in bakery dataset.
func Default() *domain.Dataset {
	ds, err := Parse(defaultDataset)
	if err != nil {
		panic(fmt.Sprintf("embedded dataset is invalid: %v", err))
	}
	return ds
}

// Source says where to read a dataset from. With neither field set the built-in
// dataset is used.
type Source struct {
	// Path is a local YAML or JSON file.
	Path string
	// Object is a key in the configured object storage.
	Object string
}

// Loader resolves a Source into a validated dataset.
type Loader struct {
	objects storage.ObjectStorage
}

// NewLoader creates a loader; objects may be nil when no object storage is configured.
func NewLoader(objects storage.ObjectStorage) *Loader {
	return &Loader{objects: objects}
}

// Load reads and validates the dataset named by src.
func (l *Loader) Load(ctx context.Context, src Source) (*domain.Dataset, error) {
	switch {
	case src.Path != "" && src.Object != "":
		return nil, fmt.Errorf("dataset path and object are mutually exclusive")

	case src.Object != "":
		if l.objects == nil {
			return nil, fmt.Errorf("dataset object %s requested but no object storage is configured", src.Object)
		}
		data, err := l.objects.GetObject(ctx, src.Object)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch dataset %s: %w", src.Object, err)
		}
		ds, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", src.Object, err)
		}
		return ds, nil

	case src.Path != "":
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset: %w", err)
		}
		ds, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", src.Path, err)
		}
		return ds, nil

	default:
		return Default(), nil
	}
}

// List returns the keys of YAML and JSON documents stored under prefix.
func (l *Loader) List(ctx context.Context, prefix string) ([]string, error) {
	if l.objects == nil {
		return nil, fmt.Errorf("dataset prefix %s requested but no object storage is configured", prefix)
	}
	objects, err := l.objects.ListObjects(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets under %s: %w", prefix, err)
	}
	keys := make([]string, 0, len(objects))
	for _, o := range objects {
		switch strings.ToLower(path.Ext(o.Key)) {
		case ".yaml", ".yml", ".json":
			keys = append(keys, o.Key)
		}
	}
	return keys, nil
}
