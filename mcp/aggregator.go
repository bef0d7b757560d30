package mcp

import (
	"context"
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// ToolAggregator flattens the tools of all running servers into one list,
// namespacing each tool name as "server.tool" so calls can be routed back.
type ToolAggregator struct {
	processManager *ProcessManager
}

func NewToolAggregator(pm *ProcessManager) *ToolAggregator {
	return &ToolAggregator{
		processManager: pm,
	}
}

func (ta *ToolAggregator) GetToolsForServers(ctx context.Context, serverNames []string) ([]mcptypes.Tool, error) {
	var allTools []mcptypes.Tool

	for _, serverName := range serverNames {
		tools, err := ta.processManager.GetTools(serverName)
		if err != nil {
			continue
		}

		for _, tool := range tools {
			namespacedTool := tool
			namespacedTool.Name = serverName + "." + tool.Name
			allTools = append(allTools, namespacedTool)
		}
	}

	return allTools, nil
}

func (ta *ToolAggregator) ExecuteTool(ctx context.Context, toolName string, args map[string]any) (*mcptypes.CallToolResult, error) {
	serverName, actualToolName := parseToolName(toolName)

	client, err := ta.processManager.GetClient(serverName)
	if err != nil {
		return nil, err
	}

	return client.CallTool(ctx, mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{
			Name:      actualToolName,
			Arguments: args,
		},
	})
}

func parseToolName(namespacedName string) (string, string) {
	idx := strings.Index(namespacedName, ".")
	if idx == -1 {
		return "", namespacedName
	}
	return namespacedName[:idx], namespacedName[idx+1:]
}
