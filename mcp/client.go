package mcp

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Client is the narrow facade over the process manager and aggregator.
type Client struct {
	processManager *ProcessManager
	aggregator     *ToolAggregator
}

func NewClient() *Client {
	pm := NewProcessManager()
	return &Client{
		processManager: pm,
		aggregator:     NewToolAggregator(pm),
	}
}

func (c *Client) Start(ctx context.Context, config ServerConfig) error {
	return c.processManager.StartServer(ctx, config)
}

func (c *Client) Stop(ctx context.Context, serverName string) error {
	return c.processManager.StopServer(ctx, serverName)
}

func (c *Client) RunningServers() []string {
	return c.processManager.RunningServers()
}

func (c *Client) RefreshTools(ctx context.Context, serverName string) error {
	return c.processManager.RefreshTools(ctx, serverName)
}

func (c *Client) GetTools(ctx context.Context, serverNames []string) ([]mcptypes.Tool, error) {
	return c.aggregator.GetToolsForServers(ctx, serverNames)
}

func (c *Client) CallTool(ctx context.Context, toolName string, args map[string]any) (*mcptypes.CallToolResult, error) {
	return c.aggregator.ExecuteTool(ctx, toolName, args)
}

func (c *Client) Shutdown(ctx context.Context) error {
	return c.processManager.Shutdown(ctx)
}
