package codereview

import (
	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/aretw0/flowengine/pkg/dsl"
)

// WorkflowName is the display name of the prebuilt graph.
const WorkflowName = "Code Review Workflow"

// QualityThreshold is the score at which the review loop finishes.
const QualityThreshold = 80

// checkQuality is a routing-only point: visiting it is a skip and only its
// conditional edges matter.
const checkQuality = "check_quality"

// Workflow returns the review graph: extract, measure, detect, suggest, then
// refine and suggest again until quality_score reaches QualityThreshold.
func Workflow() domain.Definition {
	b := dsl.New().Start(ExtractFunctions)

	b.Add(ExtractFunctions).
		Do(ExtractFunctions).
		Describe("Extract function definitions from code").
		Go(CheckComplexity)
	b.Add(CheckComplexity).
		Do(CheckComplexity).
		Describe("Analyze code complexity").
		Go(DetectIssues)
	b.Add(DetectIssues).
		Do(DetectIssues).
		Describe("Detect code issues").
		Go(SuggestImprovements)
	b.Add(SuggestImprovements).
		Do(SuggestImprovements).
		Describe("Generate improvement suggestions").
		Go(checkQuality)
	b.Add(RefineCode).
		Do(RefineCode).
		Describe("Apply refinements to improve quality").
		Go(SuggestImprovements)

	b.Route(checkQuality).
		Branch("continue_loop", "quality_score", domain.OpLess, QualityThreshold, RefineCode).
		Branch("finish", "quality_score", domain.OpGreaterEqual, QualityThreshold, domain.EndNode).
		Terminal()

	return b.Definition()
}
