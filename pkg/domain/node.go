package domain

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Node represents a named step in the graph.
// Handler names the registry entry invoked when the node is visited; it may be empty.
type Node struct {
	Handler     string `json:"handler,omitempty" yaml:"handler,omitempty" mapstructure:"handler"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
}

// nodeInput accepts the legacy "function" key alongside "handler".
type nodeInput struct {
	Handler     string `json:"handler" yaml:"handler"`
	Function    string `json:"function" yaml:"function"`
	Description string `json:"description" yaml:"description"`
}

func (in nodeInput) node() Node {
	n := Node{Handler: in.Handler, Description: in.Description}
	if n.Handler == "" {
		n.Handler = in.Function
	}
	return n
}

// UnmarshalJSON decodes a node, accepting "function" as an alias of "handler".
func (n *Node) UnmarshalJSON(data []byte) error {
	var in nodeInput
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*n = in.node()
	return nil
}

// UnmarshalYAML decodes a node, accepting "function" as an alias of "handler".
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	var in nodeInput
	if err := value.Decode(&in); err != nil {
		return err
	}
	*n = in.node()
	return nil
}
