package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Supported condition operators.
const (
	OpGreaterEqual = ">="
	OpGreater      = ">"
	OpLessEqual    = "<="
	OpLess         = "<"
	OpEqual        = "=="
	OpNotEqual     = "!="
)

// Operators lists the supported operators in evaluation-independent order.
var Operators = []string{OpGreaterEqual, OpGreater, OpLessEqual, OpLess, OpEqual, OpNotEqual}

// IsOperator reports whether op is one of the supported relational operators.
func IsOperator(op string) bool {
	for _, o := range Operators {
		if o == op {
			return true
		}
	}
	return false
}

// Condition routes to Target when state[Field] <Operator> Value holds.
type Condition struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty" mapstructure:"name"`
	Field    string `json:"field" yaml:"field" mapstructure:"field"`
	Operator string `json:"operator" yaml:"operator" mapstructure:"operator"`
	Value    any    `json:"value" yaml:"value" mapstructure:"value"`
	Target   string `json:"target" yaml:"target" mapstructure:"target"`
}

// ConditionGroup is the ordered list of conditions attached to one source node.
// The first satisfied condition wins.
//
// It decodes from either an array of conditions or an object keyed by condition
// name; object keys keep their document order.
type ConditionGroup []Condition

// conditionInput accepts "literal" as an alias of "value".
type conditionInput struct {
	Name     string `mapstructure:"name"`
	Field    string `mapstructure:"field"`
	Operator string `mapstructure:"operator"`
	Value    any    `mapstructure:"value"`
	Literal  any    `mapstructure:"literal"`
	Target   string `mapstructure:"target"`
}

// UnmarshalJSON decodes the group while preserving object key order.
func (g *ConditionGroup) UnmarshalJSON(data []byte) error {
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(compact.Bytes(), &doc); err != nil {
		return fmt.Errorf("failed to parse conditions: %w", err)
	}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return g.decode(doc.Content[0])
	}
	return g.decode(&doc)
}

// UnmarshalYAML decodes the group while preserving mapping key order.
func (g *ConditionGroup) UnmarshalYAML(value *yaml.Node) error {
	return g.decode(value)
}

func (g *ConditionGroup) decode(node *yaml.Node) error {
	group := ConditionGroup{}
	switch node.Kind {
	case yaml.SequenceNode:
		for _, item := range node.Content {
			c, err := decodeCondition("", item)
			if err != nil {
				return err
			}
			group = append(group, c)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			c, err := decodeCondition(node.Content[i].Value, node.Content[i+1])
			if err != nil {
				return err
			}
			group = append(group, c)
		}
	case yaml.ScalarNode:
		if node.Tag != "!!null" {
			return fmt.Errorf("conditions must be a list or an object, got %q", node.Value)
		}
	default:
		return fmt.Errorf("conditions must be a list or an object")
	}
	*g = group
	return nil
}

func decodeCondition(name string, node *yaml.Node) (Condition, error) {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return Condition{}, fmt.Errorf("condition %q: %w", name, err)
	}

	var in conditionInput
	if err := mapstructure.Decode(raw, &in); err != nil {
		return Condition{}, fmt.Errorf("condition %q: %w", name, err)
	}

	c := Condition{
		Name:     in.Name,
		Field:    in.Field,
		Operator: in.Operator,
		Value:    in.Value,
		Target:   in.Target,
	}
	if c.Name == "" {
		c.Name = name
	}
	if _, ok := raw["value"]; !ok {
		c.Value = in.Literal
	}
	return c, nil
}
