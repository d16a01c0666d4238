package cli

import (
	"fmt"
	"io"

	"github.com/aretw0/flowengine/internal/presentation/graph"
	"github.com/aretw0/flowengine/internal/validator"
	"github.com/aretw0/flowengine/pkg/adapters/file"
	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/aretw0/flowengine/pkg/tools/codereview"
)

// BuiltinCodeReview names the prebuilt code review workflow in place of a graph file.
const BuiltinCodeReview = "code-review"

// LoadDefinition returns the graph named by path and a display name for it.
func LoadDefinition(path string) (string, domain.Definition, error) {
	if path == BuiltinCodeReview {
		return codereview.WorkflowName, codereview.Workflow(), nil
	}
	if path == "" {
		return "", domain.Definition{}, fmt.Errorf("a graph file is required")
	}
	doc, err := file.Load(path)
	if err != nil {
		return "", domain.Definition{}, err
	}
	return doc.Name, doc.Definition, nil
}

// Validate prints every issue found in the graph and fails when any of them
// is an error. Warnings alone pass.
func Validate(path string, out io.Writer) error {
	_, def, err := LoadDefinition(path)
	if err != nil {
		return err
	}

	issues := validator.Validate(&def)
	for _, issue := range issues {
		fmt.Fprintln(out, issue.String())
	}
	return validator.Check(&def)
}

// Mermaid writes the graph as a Mermaid flowchart.
func Mermaid(path string, out io.Writer) error {
	_, def, err := LoadDefinition(path)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, graph.GenerateMermaid(&def, nil))
	return err
}
