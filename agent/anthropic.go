package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"quill/config"
	"quill/mcp"
)

// AnthropicSource streams turns from Anthropic's Messages API. The SDK
// client is created lazily on first Submit and reused for the lifetime of
// the source, with the full message history carried between turns.
type AnthropicSource struct {
	client        *anthropic.Client
	model         anthropic.Model
	baseURL       string
	apiKey        string
	system        string
	tools         ToolBroker
	maxIterations int
	history       []anthropic.MessageParam
	closed        bool
}

func NewAnthropicSource(baseURL, apiKey, model, system string, tools ToolBroker, maxIterations int) (*AnthropicSource, error) {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}
	if maxIterations <= 0 {
		maxIterations = 5
	}

	return &AnthropicSource{
		model:         anthropic.Model(model),
		baseURL:       baseURL,
		apiKey:        apiKey,
		system:        system,
		tools:         tools,
		maxIterations: maxIterations,
	}, nil
}

func (s *AnthropicSource) ensureClient() *anthropic.Client {
	if s.client == nil {
		client := anthropic.NewClient(
			option.WithBaseURL(s.baseURL),
			option.WithAPIKey(s.apiKey),
		)
		s.client = &client
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Agent] Created Anthropic client (model: %s)", s.model)
		}
	}
	return s.client
}

func (s *AnthropicSource) Submit(ctx context.Context, prompt string) (*Stream, error) {
	if s.closed {
		return nil, ErrClosed
	}

	s.history = append(s.history, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))

	stream := NewStream()
	go s.runTurn(ctx, stream)
	return stream, nil
}

// runTurn drives the request/tool loop for one turn and always leaves the
// stream closed behind exactly one terminal event.
func (s *AnthropicSource) runTurn(ctx context.Context, stream *Stream) {
	defer stream.Close()

	client := s.ensureClient()

	var anthropicTools []anthropic.ToolUnionParam
	if s.tools != nil {
		mcpTools, err := s.tools.GetTools(ctx)
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Agent] Failed to list tools, continuing without: %v", err)
			}
		} else {
			anthropicTools = mcp.ToolsToAnthropic(mcpTools)
		}
	}

	for iteration := 0; iteration < s.maxIterations; iteration++ {
		params := anthropic.MessageNewParams{
			Model:     s.model,
			Messages:  s.history,
			MaxTokens: 4096,
		}
		if s.system != "" {
			params.System = []anthropic.TextBlockParam{{Text: s.system}}
		}
		if len(anthropicTools) > 0 {
			params.Tools = anthropicTools
		}

		sdkStream := client.Messages.NewStreaming(ctx, params)
		msg := anthropic.Message{}

		for sdkStream.Next() {
			event := sdkStream.Current()

			if err := msg.Accumulate(event); err != nil {
				stream.Emit(ctx, StreamFailed{Err: fmt.Errorf("error accumulating message: %w", err)})
				return
			}

			switch eventVariant := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch deltaVariant := eventVariant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if !stream.Emit(ctx, TextDelta{Text: deltaVariant.Text}) {
						return
					}
				}
			}
		}

		if err := sdkStream.Err(); err != nil {
			stream.Emit(ctx, StreamFailed{Err: fmt.Errorf("Anthropic streaming error: %w", err)})
			return
		}

		s.history = append(s.history, msg.ToParam())

		toolUses := extractToolUses(msg.Content)
		if len(toolUses) == 0 {
			stream.Emit(ctx, TurnCompleted{})
			return
		}

		// Execute each requested tool and feed the results back as the next
		// user message, then loop for the follow-up response.
		var resultBlocks []anthropic.ContentBlockParamUnion
		for _, use := range toolUses {
			if !stream.Emit(ctx, ToolCallRequested{
				ID:        use.ID,
				Name:      use.Name,
				Arguments: string(use.Input),
			}) {
				return
			}

			result, isError := s.execTool(ctx, use.Name, use.Input)

			if !stream.Emit(ctx, ToolCallCompleted{ID: use.ID, Result: result}) {
				return
			}

			resultBlocks = append(resultBlocks, anthropic.NewToolResultBlock(use.ID, result, isError))
		}

		s.history = append(s.history, anthropic.NewUserMessage(resultBlocks...))
	}

	// Iteration cap reached; end the turn with whatever text streamed.
	if config.DebugLog != nil {
		config.DebugLog.Printf("[Agent] Tool iteration limit (%d) reached, ending turn", s.maxIterations)
	}
	stream.Emit(ctx, TurnCompleted{})
}

func (s *AnthropicSource) execTool(ctx context.Context, name string, input json.RawMessage) (string, bool) {
	if s.tools == nil {
		return fmt.Sprintf("Error: no tool runner available for %s", name), true
	}

	var args map[string]any
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return fmt.Sprintf("Error: invalid tool arguments: %v", err), true
		}
	}

	result, err := s.tools.RunTool(ctx, name, args)
	if err != nil {
		return fmt.Sprintf("Error executing tool: %v", err), true
	}
	return result, false
}

func (s *AnthropicSource) Close(ctx context.Context) error {
	s.closed = true
	s.client = nil
	s.history = nil
	return nil
}

// extractToolUses pulls the tool use blocks out of a completed message.
func extractToolUses(content []anthropic.ContentBlockUnion) []anthropic.ToolUseBlock {
	var uses []anthropic.ToolUseBlock
	for _, block := range content {
		if toolUse, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			uses = append(uses, toolUse)
		}
	}
	return uses
}
