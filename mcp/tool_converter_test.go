package mcp

import (
	"testing"

	"github.com/ollama/ollama/api"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

func TestToolsToOllama(t *testing.T) {
	tests := []struct {
		name     string
		input    []mcptypes.Tool
		expected int // expected tool count
		validate func(t *testing.T, result []api.Tool)
	}{
		{
			name:     "empty tools",
			input:    []mcptypes.Tool{},
			expected: 0,
			validate: func(t *testing.T, result []api.Tool) {
				if len(result) != 0 {
					t.Errorf("expected empty slice, got %d tools", len(result))
				}
			},
		},
		{
			name: "single simple tool",
			input: []mcptypes.Tool{
				{
					Name:        "demo.echo",
					Description: "Echo back the input",
					InputSchema: mcptypes.ToolInputSchema{
						Type:       "object",
						Properties: map[string]any{},
						Required:   []string{},
					},
				},
			},
			expected: 1,
			validate: func(t *testing.T, result []api.Tool) {
				if result[0].Type != "function" {
					t.Errorf("expected type 'function', got %q", result[0].Type)
				}
				if result[0].Function.Name != "demo.echo" {
					t.Errorf("expected name 'demo.echo', got %q", result[0].Function.Name)
				}
				if result[0].Function.Description != "Echo back the input" {
					t.Errorf("expected description 'Echo back the input', got %q", result[0].Function.Description)
				}
			},
		},
		{
			name: "tool with properties",
			input: []mcptypes.Tool{
				{
					Name:        "files.search",
					Description: "Search workspace files",
					InputSchema: mcptypes.ToolInputSchema{
						Type: "object",
						Properties: map[string]any{
							"mode": map[string]any{
								"type":        "string",
								"description": "Match mode",
								"enum":        []any{"glob", "regex", "literal"},
							},
							"pattern": map[string]any{
								"type":        "string",
								"description": "Pattern to match",
							},
							"limit": map[string]any{
								"type":        "number",
								"description": "Maximum results",
							},
						},
						Required: []string{"mode", "pattern"},
					},
				},
			},
			expected: 1,
			validate: func(t *testing.T, result []api.Tool) {
				params := result[0].Function.Parameters
				if params.Type != "object" {
					t.Errorf("expected type 'object', got %q", params.Type)
				}
				if len(params.Required) != 2 {
					t.Errorf("expected 2 required fields, got %d", len(params.Required))
				}
				if len(params.Properties) != 3 {
					t.Errorf("expected 3 properties, got %d", len(params.Properties))
				}

				modeProp, ok := params.Properties["mode"]
				if !ok {
					t.Fatal("mode property not found")
				}
				if modeProp.Description != "Match mode" {
					t.Errorf("mode description mismatch")
				}
				if len(modeProp.Enum) != 3 {
					t.Errorf("expected 3 enum values, got %d", len(modeProp.Enum))
				}
			},
		},
		{
			name: "multiple tools",
			input: []mcptypes.Tool{
				{
					Name:        "tool1",
					Description: "First tool",
					InputSchema: mcptypes.ToolInputSchema{
						Type:       "object",
						Properties: map[string]any{},
						Required:   []string{},
					},
				},
				{
					Name:        "tool2",
					Description: "Second tool",
					InputSchema: mcptypes.ToolInputSchema{
						Type:       "object",
						Properties: map[string]any{},
						Required:   []string{},
					},
				},
			},
			expected: 2,
			validate: func(t *testing.T, result []api.Tool) {
				if result[0].Function.Name != "tool1" {
					t.Errorf("first tool name mismatch")
				}
				if result[1].Function.Name != "tool2" {
					t.Errorf("second tool name mismatch")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToolsToOllama(tt.input)

			if len(result) != tt.expected {
				t.Fatalf("expected %d tools, got %d", tt.expected, len(result))
			}

			if tt.validate != nil {
				tt.validate(t, result)
			}
		})
	}
}

func TestToOllamaProperty(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		validate func(t *testing.T, result api.ToolProperty)
	}{
		{
			name: "string type",
			input: map[string]any{
				"type":        "string",
				"description": "A string property",
			},
			validate: func(t *testing.T, result api.ToolProperty) {
				if len(result.Type) != 1 || result.Type[0] != "string" {
					t.Errorf("expected type [string], got %v", result.Type)
				}
				if result.Description != "A string property" {
					t.Errorf("description mismatch")
				}
			},
		},
		{
			name: "array type property",
			input: map[string]any{
				"type":        []any{"string", "number"},
				"description": "Multi-type property",
			},
			validate: func(t *testing.T, result api.ToolProperty) {
				if len(result.Type) != 2 {
					t.Errorf("expected 2 types, got %d", len(result.Type))
				}
			},
		},
		{
			name: "property with enum",
			input: map[string]any{
				"type": "string",
				"enum": []any{"option1", "option2", "option3"},
			},
			validate: func(t *testing.T, result api.ToolProperty) {
				if len(result.Enum) != 3 {
					t.Errorf("expected 3 enum values, got %d", len(result.Enum))
				}
			},
		},
		{
			name: "array property with items",
			input: map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "string",
				},
			},
			validate: func(t *testing.T, result api.ToolProperty) {
				if result.Items == nil {
					t.Error("expected items to be set")
				}
			},
		},
		{
			name: "property with anyOf",
			input: map[string]any{
				"anyOf": []any{
					map[string]any{"type": "string"},
					map[string]any{"type": "number"},
				},
			},
			validate: func(t *testing.T, result api.ToolProperty) {
				if len(result.AnyOf) != 2 {
					t.Errorf("expected 2 anyOf options, got %d", len(result.AnyOf))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := toOllamaProperty(tt.input)
			if tt.validate != nil {
				tt.validate(t, result)
			}
		})
	}
}

func TestToolsToAnthropic(t *testing.T) {
	input := []mcptypes.Tool{
		{
			Name:        "files.read",
			Description: "Read a workspace file",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "File path",
					},
				},
				Required: []string{"path"},
			},
		},
	}

	result := ToolsToAnthropic(input)

	if len(result) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(result))
	}
	if result[0].OfTool == nil {
		t.Fatal("expected OfTool variant to be set")
	}
	if result[0].OfTool.Name != "files.read" {
		t.Errorf("expected name 'files.read', got %q", result[0].OfTool.Name)
	}
	if result[0].OfTool.Description.Value != "Read a workspace file" {
		t.Errorf("description mismatch")
	}
	if len(result[0].OfTool.InputSchema.Required) != 1 {
		t.Errorf("expected 1 required field, got %d", len(result[0].OfTool.InputSchema.Required))
	}

	if got := ToolsToAnthropic(nil); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}

func TestToolsToOpenAI(t *testing.T) {
	input := []mcptypes.Tool{
		{
			Name:        "files.list",
			Description: "List workspace files",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"dir": map[string]any{"type": "string"},
				},
				Required: []string{"dir"},
			},
		},
	}

	result := ToolsToOpenAI(input)

	if len(result) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(result))
	}
	if result[0].OfFunction == nil {
		t.Fatal("expected function variant to be set")
	}
	fn := result[0].OfFunction.Function
	if fn.Name != "files.list" {
		t.Errorf("expected name 'files.list', got %q", fn.Name)
	}
	params := fn.Parameters
	if params["type"] != "object" {
		t.Errorf("expected object schema, got %v", params["type"])
	}
	required, ok := params["required"].([]string)
	if !ok || len(required) != 1 {
		t.Errorf("required fields not carried over: %v", params["required"])
	}

	if got := ToolsToOpenAI(nil); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}

func TestOllamaToolCallArgs(t *testing.T) {
	call := api.ToolCall{
		Function: api.ToolCallFunction{
			Name: "files.search",
			Arguments: map[string]any{
				"pattern": "*.md",
				"limit":   float64(10),
			},
		},
	}

	name, args := OllamaToolCallArgs(call)

	if name != "files.search" {
		t.Errorf("expected name 'files.search', got %q", name)
	}
	if len(args) != 2 {
		t.Fatalf("expected 2 arguments, got %d", len(args))
	}
	if args["pattern"] != "*.md" {
		t.Errorf("pattern argument mismatch: %v", args["pattern"])
	}
}

func TestParseToolName(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantServer string
		wantTool   string
	}{
		{"namespaced", "demo.echo", "demo", "echo"},
		{"nested dots go to tool", "files.read.binary", "files", "read.binary"},
		{"no namespace", "echo", "", "echo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, tool := parseToolName(tt.input)
			if server != tt.wantServer || tool != tt.wantTool {
				t.Errorf("parseToolName(%q) = (%q, %q), want (%q, %q)",
					tt.input, server, tool, tt.wantServer, tt.wantTool)
			}
		})
	}
}
