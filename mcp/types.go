package mcp

import (
	"os/exec"

	"github.com/mark3labs/mcp-go/client"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// ServerConfig describes one tool server to connect to. Local servers are
// spawned from Command/Args over stdio; remote servers are reached at
// ServerURL.
type ServerConfig struct {
	Name      string
	Command   string
	Args      []string
	Env       map[string]string
	ServerURL string
	Headers   map[string]string
	Transport string // "sse" (default) or "streamable-http"
}

// ServerProcess tracks one running tool server connection.
type ServerProcess struct {
	Name     string
	Process  *exec.Cmd // nil for remote servers
	Client   *client.Client
	Tools    []mcptypes.Tool
	Running  bool
	IsRemote bool
}
