package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/flowengine/pkg/domain"
)

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFromLog marks every node in the log as visited and the last one as current.
func OverlayFromLog(log []domain.LogEntry) *GraphOverlay {
	overlay := &GraphOverlay{}
	for _, e := range log {
		if e.Node == "" {
			continue
		}
		overlay.VisitedNodes = append(overlay.VisitedNodes, e.Node)
		overlay.CurrentNode = e.Node
	}
	return overlay
}

// GenerateMermaid produces a Mermaid flowchart from a definition.
// It applies semantic styling:
// - START/END: ((Circle))
// - Node with handler: [[Subroutine]]
// - Node without handler: [Rectangle]
// - Routing-only point (referenced but not declared): {Diamond}
// Conditional edges are numbered in evaluation order; the plain edge of a node
// with conditions is labeled "default".
func GenerateMermaid(def *domain.Definition, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	fmt.Fprintf(&sb, "    %s((\"%s\"))\n", sanitizeMermaidID(domain.StartNode), domain.StartNode)
	for _, id := range sortedIDs(def.Nodes) {
		node := def.Nodes[id]
		safeID := sanitizeMermaidID(id)
		if node.Handler == "" {
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", safeID, escape(id))
			continue
		}
		label := escape(id)
		if node.Handler != id {
			label += " <br/> " + escape(node.Handler)
		}
		fmt.Fprintf(&sb, "    %s[[\"%s\"]]\n", safeID, label)
	}
	for _, id := range routers(def) {
		fmt.Fprintf(&sb, "    %s{\"%s\"}\n", sanitizeMermaidID(id), escape(id))
	}
	fmt.Fprintf(&sb, "    %s((\"%s\"))\n", sanitizeMermaidID(domain.EndNode), domain.EndNode)

	for _, src := range sources(def) {
		safeSrc := sanitizeMermaidID(src)
		group := def.ConditionalEdges[src]

		for i, cond := range group {
			if cond.Target == "" {
				continue
			}
			label := fmt.Sprintf("%d. %s %s %v", i+1, cond.Field, cond.Operator, cond.Value)
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeSrc, escape(label), sanitizeMermaidID(cond.Target))
		}

		target, ok := def.Edges[src]
		if !ok || target == "" {
			continue
		}
		if len(group) > 0 {
			fmt.Fprintf(&sb, "    %s -. \"default\" .-> %s\n", safeSrc, sanitizeMermaidID(target))
		} else {
			fmt.Fprintf(&sb, "    %s --> %s\n", safeSrc, sanitizeMermaidID(target))
		}
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

// routers returns edge endpoints that are neither declared nor reserved.
func routers(def *domain.Definition) []string {
	seen := map[string]bool{}
	consider := func(id string) {
		if id == "" || id == domain.StartNode || id == domain.EndNode {
			return
		}
		if _, declared := def.Nodes[id]; !declared {
			seen[id] = true
		}
	}
	for src, target := range def.Edges {
		consider(src)
		consider(target)
	}
	for src, group := range def.ConditionalEdges {
		consider(src)
		for _, c := range group {
			consider(c.Target)
		}
	}
	return sortedIDs(seen)
}

// sources lists edge origins with START first, then alphabetically.
func sources(def *domain.Definition) []string {
	set := map[string]bool{}
	for src := range def.Edges {
		set[src] = true
	}
	for src := range def.ConditionalEdges {
		set[src] = true
	}
	ids := sortedIDs(set)
	sort.SliceStable(ids, func(i, j int) bool {
		return ids[i] == domain.StartNode && ids[j] != domain.StartNode
	})
	return ids
}

func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	// "end" is a Mermaid keyword in any case.
	if strings.EqualFold(s, "end") {
		s += "_"
	}
	return s
}
