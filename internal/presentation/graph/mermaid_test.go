package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/flowengine/internal/presentation/graph"
	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/aretw0/flowengine/pkg/tools/codereview"
)

func TestGenerateMermaid(t *testing.T) {
	def := codereview.Workflow()
	def.Nodes["note"] = domain.Node{}
	def.Edges["note"] = "my-step.v2"

	out := graph.GenerateMermaid(&def, nil)

	contains := []string{
		"graph TD\n",
		`START(("START"))`,
		`END_(("END"))`,
		`extract_functions[["extract_functions"]]`,
		`note["note"]`,
		`check_quality{"check_quality"}`,
		`my_step_v2{"my-step.v2"}`,
		"START --> extract_functions",
		`check_quality -- "1. quality_score < 80" --> refine_code`,
		`check_quality -- "2. quality_score >= 80" --> END_`,
		`check_quality -. "default" .-> END_`,
		"refine_code --> suggest_improvements",
		"note --> my_step_v2",
	}
	for _, want := range contains {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q\nGot:\n%s", want, out)
		}
	}

	if strings.Contains(out, "Overlay") {
		t.Error("No overlay styles expected without an overlay")
	}
	if first := strings.Index(out, "START -->"); first > strings.Index(out, "check_quality --") {
		t.Error("START edges must come first")
	}
}

func TestGenerateMermaid_HandlerLabel(t *testing.T) {
	def := &domain.Definition{
		Nodes: map[string]domain.Node{"lint": {Handler: "detect_issues"}},
		Edges: map[string]string{"START": "lint"},
	}

	out := graph.GenerateMermaid(def, nil)
	if !strings.Contains(out, `lint[["lint <br/> detect_issues"]]`) {
		t.Errorf("Expected handler in label, got:\n%s", out)
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	def := codereview.Workflow()
	log := []domain.LogEntry{
		{Iteration: 2, Node: "extract_functions"},
		{Iteration: 3, Node: "check_complexity"},
		{Iteration: 4, Node: "extract_functions"},
		{Warning: domain.MaxIterationsWarning},
	}

	out := graph.GenerateMermaid(&def, graph.OverlayFromLog(log))

	if strings.Count(out, "class extract_functions visited;") != 1 {
		t.Errorf("Visited nodes must be deduplicated:\n%s", out)
	}
	if !strings.Contains(out, "class check_complexity visited;") {
		t.Error("Missing visited class")
	}
	if !strings.Contains(out, "class extract_functions current;") {
		t.Error("Last logged node must be current")
	}
}
