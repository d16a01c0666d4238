package tui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/flowengine/internal/presentation/tui"
	"github.com/aretw0/flowengine/pkg/domain"
)

func TestRunReport(t *testing.T) {
	res := &domain.RunResult{
		FinalState: domain.State{"count": 2, "code": "def f():\n    pass\n", "name": "a|b"},
		Log: []domain.LogEntry{
			{Iteration: 2, Node: "inc", Status: domain.StatusSuccess},
			{Iteration: 3, Node: "route", Status: domain.StatusSkipped, Reason: "node not declared"},
			{Warning: domain.MaxIterationsWarning},
		},
	}

	out := tui.RunReport("Counter", res)

	for _, want := range []string{
		"# Counter\n",
		"**Outcome:** max iterations reached",
		"| 2 | inc | success |  |",
		"| 3 | route | skipped | node not declared |",
		"| | | warning | Max iterations reached |",
		"- **count**: `2`",
		"```\ndef f():\n    pass\n```",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected report to contain %q\nGot:\n%s", want, out)
		}
	}
	if strings.Index(out, "**code**") > strings.Index(out, "**count**") {
		t.Error("State keys must be sorted")
	}
}

func TestRunReport_FailedAndEmpty(t *testing.T) {
	failed := tui.RunReport("F", &domain.RunResult{Log: []domain.LogEntry{
		{Iteration: 2, Node: "a", Status: domain.StatusError, Error: "boom"},
	}})
	if !strings.Contains(failed, "**Outcome:** failed") || !strings.Contains(failed, "| boom |") {
		t.Errorf("Unexpected report:\n%s", failed)
	}

	empty := tui.RunReport("E", &domain.RunResult{FinalState: domain.State{}})
	if !strings.Contains(empty, "_No steps were executed._") || !strings.Contains(empty, "**Outcome:** completed") {
		t.Errorf("Unexpected report:\n%s", empty)
	}
}

func TestNewRenderer(t *testing.T) {
	out, err := tui.NewRenderer()("# Title\n\nbody text")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "body text") {
		t.Errorf("Rendered output lost content: %q", out)
	}
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "1.2.3")
	if !strings.Contains(buf.String(), "version 1.2.3") {
		t.Errorf("Banner must include the version, got:\n%s", buf.String())
	}
}
