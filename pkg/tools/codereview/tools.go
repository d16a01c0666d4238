// Package codereview provides heuristic code-analysis handlers and a prebuilt
// review workflow that loops through refinement until a quality threshold is met.
//
// The heuristics are deliberately shallow text scans; they read the source from
// the "code" state key.
package codereview

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/aretw0/flowengine/pkg/registry"
	"github.com/spf13/cast"
)

// Handler names.
const (
	ExtractFunctions    = "extract_functions"
	CheckComplexity     = "check_complexity"
	DetectIssues        = "detect_issues"
	SuggestImprovements = "suggest_improvements"
	RefineCode          = "refine_code"
)

// Issue messages reported by DetectIssues.
const (
	IssueBareExcept = "Bare except clause found"
	IssueEval       = "Use of eval() detected"
	IssueGlobal     = "Global variable usage detected"
)

// Suggestions produced by SuggestImprovements.
const (
	SuggestBreakDown  = "Consider breaking down complex functions"
	SuggestAddress    = "Address detected code issues"
	SuggestModularize = "Consider modularizing code into smaller functions"
)

const maxLineLength = 100

var funcPattern = regexp.MustCompile(`def\s+(\w+)\s*\([^)]*\):`)

var complexityKeywords = []string{"if", "for", "while", "elif", "else"}

// Register adds every code-review handler to reg.
func Register(reg *registry.Registry) {
	reg.RegisterFunc(ExtractFunctions, extractFunctions)
	reg.RegisterFunc(CheckComplexity, checkComplexity)
	reg.RegisterFunc(DetectIssues, detectIssues)
	reg.RegisterFunc(SuggestImprovements, suggestImprovements)
	reg.RegisterFunc(RefineCode, refineCode)
}

func code(state domain.State) string {
	return cast.ToString(state["code"])
}

func extractFunctions(_ context.Context, state domain.State) (any, error) {
	functions := []string{}
	for _, m := range funcPattern.FindAllStringSubmatch(code(state), -1) {
		functions = append(functions, m[1])
	}
	return map[string]any{
		"functions":      functions,
		"function_count": len(functions),
	}, nil
}

func checkComplexity(_ context.Context, state domain.State) (any, error) {
	src := code(state)

	lineCount := 0
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			lineCount++
		}
	}

	// Substring counts: "elif" also counts as an "if".
	score := 0
	for _, kw := range complexityKeywords {
		score += strings.Count(src, kw)
	}

	return map[string]any{
		"line_count":       lineCount,
		"complexity_score": score,
	}, nil
}

func detectIssues(_ context.Context, state domain.State) (any, error) {
	src := code(state)
	issues := []string{}

	if strings.Contains(src, "except:") {
		issues = append(issues, IssueBareExcept)
	}
	if strings.Contains(src, "eval(") {
		issues = append(issues, IssueEval)
	}
	if strings.Contains(src, "global ") {
		issues = append(issues, IssueGlobal)
	}

	var long []string
	for i, line := range strings.Split(src, "\n") {
		if utf8.RuneCountInString(line) > maxLineLength {
			long = append(long, strconv.Itoa(i+1))
		}
	}
	if len(long) > 0 {
		if len(long) > 3 {
			long = long[:3]
		}
		issues = append(issues, fmt.Sprintf("Lines exceed %d characters: [%s]", maxLineLength, strings.Join(long, ", ")))
	}

	return map[string]any{
		"issues":      issues,
		"issue_count": len(issues),
	}, nil
}

func suggestImprovements(_ context.Context, state domain.State) (any, error) {
	issues := cast.ToStringSlice(state["issues"])
	complexity := cast.ToInt(state["complexity_score"])

	suggestions := []string{}
	if complexity > 10 {
		suggestions = append(suggestions, SuggestBreakDown)
	}
	if len(issues) > 0 {
		suggestions = append(suggestions, SuggestAddress)
	}
	if cast.ToInt(state["line_count"]) > 100 {
		suggestions = append(suggestions, SuggestModularize)
	}

	return map[string]any{
		"suggestions":   suggestions,
		"quality_score": QualityScore(len(issues), complexity),
	}, nil
}

func refineCode(_ context.Context, state domain.State) (any, error) {
	return map[string]any{
		"quality_score":      min(100, cast.ToInt(state["quality_score"])+15),
		"iteration":          cast.ToInt(state["iteration"]) + 1,
		"refinement_applied": true,
	}, nil
}

// QualityScore is 100 minus 10 per issue and 5 per complexity point (capped at
// five points), floored at zero.
func QualityScore(issues, complexity int) int {
	return max(0, 100-issues*10-min(complexity, 5)*5)
}
