package tui

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/flowengine/pkg/domain"
)

// RunReport formats a run result as markdown: a step table followed by the
// final state.
func RunReport(title string, res *domain.RunResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)

	switch {
	case res.Failed():
		sb.WriteString("**Outcome:** failed\n\n")
	case res.Exhausted():
		sb.WriteString("**Outcome:** max iterations reached\n\n")
	default:
		sb.WriteString("**Outcome:** completed\n\n")
	}

	sb.WriteString("## Steps\n\n")
	if len(res.Log) == 0 {
		sb.WriteString("_No steps were executed._\n\n")
	} else {
		sb.WriteString("| # | Node | Status | Detail |\n")
		sb.WriteString("|---|------|--------|--------|\n")
		for _, e := range res.Log {
			if e.IsWarning() {
				fmt.Fprintf(&sb, "| | | warning | %s |\n", cell(e.Warning))
				continue
			}
			detail := e.Reason
			if e.Error != "" {
				detail = e.Error
			}
			fmt.Fprintf(&sb, "| %d | %s | %s | %s |\n", e.Iteration, cell(e.Node), e.Status, cell(detail))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Final State\n\n")
	keys := make([]string, 0, len(res.FinalState))
	for k := range res.FinalState {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "- **%s**: %s\n", k, value(res.FinalState[k]))
	}
	return sb.String()
}

func value(v any) string {
	if s, ok := v.(string); ok {
		if strings.Contains(s, "\n") {
			return "\n\n```\n" + strings.TrimRight(s, "\n") + "\n```\n"
		}
		return "`" + s + "`"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return "`" + string(data) + "`"
}

func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", "\\|"), "\n", " ")
}
