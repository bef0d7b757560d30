// Package transcript assembles a streamed agent turn into a single ordered
// document.
//
// An agent turn arrives as an interleaved sequence of text deltas, tool call
// requests and tool call results. The transcript layer folds those into an
// append-only element buffer plus a registry of tool invocations, renders the
// buffer to text after every visible change, and pushes the result to a
// display sink using create-then-replace semantics.
//
// The element buffer preserves first-observed order: a tool call occupies the
// position where its request was first seen, and stays there even when its
// result arrives much later.
package transcript

// ElementKind discriminates the two element variants.
type ElementKind int

const (
	// ElementText is an immutable fragment of assistant-authored text.
	ElementText ElementKind = iota
	// ElementTool is a positional marker pointing at a registry entry.
	ElementTool
)

// Element is one entry in the ordered document buffer.
// Text is set for ElementText, ToolID for ElementTool.
type Element struct {
	Kind   ElementKind
	Text   string
	ToolID string
}

// TextElement returns a text element holding the given fragment.
func TextElement(text string) Element {
	return Element{Kind: ElementText, Text: text}
}

// ToolElement returns a tool marker for the given invocation id.
func ToolElement(id string) Element {
	return Element{Kind: ElementTool, ToolID: id}
}
