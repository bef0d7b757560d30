package transcript

import (
	"fmt"
	"strings"
)

// Render produces the document text for the given elements and registry
// snapshot. It is a pure function: identical input yields byte-identical
// output, which is what makes replace pushes to the sink stable.
//
// Consecutive text elements are concatenated verbatim (deltas are fragments,
// not paragraphs). Tool blocks are set apart as their own paragraphs.
func Render(elements []Element, registry *Registry) string {
	var parts []string
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, text.String())
			text.Reset()
		}
	}

	for _, el := range elements {
		switch el.Kind {
		case ElementText:
			text.WriteString(el.Text)
		case ElementTool:
			rec, exists := registry.Get(el.ToolID)
			if !exists {
				// Assembler guarantees no dangling markers; skip defensively.
				continue
			}
			flush()
			parts = append(parts, renderToolBlock(rec))
		}
	}
	flush()

	return strings.Join(parts, "\n\n")
}

// renderToolBlock formats one invocation as a fenced presentation block.
// The result line appears only once the result has arrived, so the block
// re-renders in place without moving.
func renderToolBlock(rec Invocation) string {
	var b strings.Builder

	b.WriteString("```tool\n")
	fmt.Fprintf(&b, "id: %s\n", rec.ID)
	fmt.Fprintf(&b, "tool: %s\n", rec.Name)
	fmt.Fprintf(&b, "args: %s\n", rec.Arguments)
	if rec.HasResult {
		fmt.Fprintf(&b, "result: %s\n", rec.Result)
	}
	b.WriteString("```")

	return b.String()
}
