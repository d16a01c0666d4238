// Package file loads graph definitions from YAML or JSON documents on disk.
package file

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/flowengine/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk shape of a graph: an optional name next to the definition.
type Document struct {
	Name              string `json:"name,omitempty" yaml:"name,omitempty"`
	domain.Definition `yaml:",inline"`
}

// Load reads a graph document. Files ending in .json are decoded as JSON;
// everything else as YAML (which also accepts JSON).
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}

	doc, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// Decode parses a graph document from r in the given format ("json" or "yaml").
func Decode(r io.Reader, format string) (*Document, error) {
	var doc Document
	switch format {
	case "json":
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode JSON graph: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("empty graph document")
			}
			return nil, fmt.Errorf("failed to decode YAML graph: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported graph format %q", format)
	}

	if doc.Nodes == nil {
		doc.Nodes = map[string]domain.Node{}
	}
	if doc.Edges == nil {
		doc.Edges = map[string]string{}
	}
	return &doc, nil
}

// LoadState reads an initial state from a JSON or YAML file.
func LoadState(path string) (domain.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	return ParseState(data)
}

// ParseState decodes a JSON or YAML object into a state.
func ParseState(data []byte) (domain.State, error) {
	state := domain.State{}
	if len(bytes.TrimSpace(data)) == 0 {
		return state, nil
	}
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return state, nil
}
