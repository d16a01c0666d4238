// Package process exposes allow-listed external commands as handlers.
package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tool represents the configuration for an external command handler.
type Tool struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
}

// ToolsFile represents the structure of tools.yaml.
type ToolsFile struct {
	Tools []Tool `yaml:"tools" json:"tools"`
}

// LoadTools reads a configuration file (YAML or JSON). Entries without a name
// are skipped; an entry without a command is an error.
func LoadTools(path string) ([]Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tools config: %w", err)
	}

	var cfg ToolsFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	tools := make([]Tool, 0, len(cfg.Tools))
	for _, tool := range cfg.Tools {
		if tool.Name == "" {
			continue
		}
		if tool.Command == "" {
			return nil, fmt.Errorf("tool %q has no command", tool.Name)
		}
		tools = append(tools, tool)
	}
	return tools, nil
}
