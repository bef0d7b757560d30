// Package prompt assembles the system and user prompts handed to the agent
// runtime. The engine treats both as opaque text; everything here is string
// assembly with no I/O.
package prompt

import (
	"fmt"
	"strings"
)

const basePrompt = "You are Quill, an AI assistant embedded in an " +
	"interactive document editor. You help users write, edit and reason " +
	"about documents and code, and you can call tools to read and modify " +
	"files when tools are available."

// BuildSystemPrompt returns the system prompt for one session. It is built
// once at session connect and reused for every turn on that connection.
func BuildSystemPrompt(workspaceDir string) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\nYou are operating with the following context:\n")
	fmt.Fprintf(&b, "- Workspace directory: %s\n", workspaceDir)
	b.WriteString("- Tool calls and their results are shown to the user as the turn streams; keep surrounding prose coherent on its own\n")
	b.WriteString("- Be careful with destructive operations and explain your reasoning when modifying files")
	return b.String()
}

// BuildUserPrompt wraps the raw prompt with attachment references and
// continuity context from recent turns.
//
// With attachments the prompt is prefixed with a file list:
//
//	The user has attached the following file(s):
//	- a.md
//	- b.md
//
//	<prompt>
//
// recentWindow entries (already bounded previews, oldest first) are placed
// before everything else so the runtime sees prior turns even on a fresh
// connection.
func BuildUserPrompt(userPrompt string, attachments []string, recentWindow []string) string {
	full := userPrompt

	if len(attachments) > 0 {
		var list strings.Builder
		for _, path := range attachments {
			fmt.Fprintf(&list, "- %s\n", path)
		}
		full = fmt.Sprintf("The user has attached the following file(s):\n%s\n%s", list.String(), full)
	}

	if len(recentWindow) > 0 {
		full = fmt.Sprintf("Recent conversation context:\n%s\n\n%s", strings.Join(recentWindow, "\n"), full)
	}

	return full
}
