package graph

import (
	"fmt"
	"strings"

	"github.com/crabritto/arbor/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	// Highlight marks a node, e.g. the one just edited.
	Highlight string
}

// GenerateMermaid produces a Mermaid flowchart of a tree.
// The root is drawn as a circle, other nodes as rectangles, and every edge
// is tagged L or R. Children are emitted left before right so the rendering
// matches the wire order.
func GenerateMermaid(tree *domain.Tree, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	tree.Walk(func(n, parent *domain.Node, _ int) bool {
		safeID := sanitizeMermaidID(n.ID)
		if parent == nil {
			sb.WriteString(fmt.Sprintf("    %s((\"%d\"))\n", safeID, n.Label))
		} else {
			sb.WriteString(fmt.Sprintf("    %s[\"%d\"]\n", safeID, n.Label))
		}
		for _, c := range n.Ordered() {
			tag := "R"
			if c.Side == domain.SideLeft {
				tag = "L"
			}
			sb.WriteString(fmt.Sprintf("    %s -- %s --> %s\n", safeID, tag, sanitizeMermaidID(c.ID)))
		}
		return true
	})

	if overlay != nil && overlay.Highlight != "" {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast regardless of theme
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.Highlight)))
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
