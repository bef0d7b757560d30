package agent

import (
	"context"
	"errors"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// ErrClosed is returned by Submit after a source has been closed.
var ErrClosed = errors.New("agent source is closed")

// Source is a persistent connection to an agent runtime. The runtime keeps
// multi-turn context across Submit calls on the same Source; callers must not
// run two Submits concurrently on one Source.
type Source interface {
	// Submit sends a prompt and returns the event stream for the resulting
	// turn. The stream always terminates with TurnCompleted or StreamFailed.
	Submit(ctx context.Context, prompt string) (*Stream, error)

	// Close releases the connection. The Source cannot be reused afterwards.
	Close(ctx context.Context) error
}

// ToolRunner executes a named tool with serialized arguments and returns the
// serialized result. Implemented by the MCP manager; sources treat both
// payloads as opaque.
type ToolRunner interface {
	RunTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// ToolBroker additionally exposes the tool definitions a runtime should be
// offered. Satisfied by the MCP manager.
type ToolBroker interface {
	ToolRunner
	GetTools(ctx context.Context) ([]mcptypes.Tool, error)
}
