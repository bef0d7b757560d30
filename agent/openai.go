package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"quill/config"
	"quill/mcp"
)

// OpenAISource streams turns from the OpenAI chat completions API. The same
// source also covers OpenAI-compatible endpoints via a custom base URL.
type OpenAISource struct {
	client        *openai.Client
	model         string
	baseURL       string
	apiKey        string
	tools         ToolBroker
	maxIterations int
	history       []openai.ChatCompletionMessageParamUnion
	closed        bool
}

func NewOpenAISource(baseURL, apiKey, model, system string, tools ToolBroker, maxIterations int) (*OpenAISource, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if maxIterations <= 0 {
		maxIterations = 5
	}

	s := &OpenAISource{
		model:         model,
		baseURL:       baseURL,
		apiKey:        apiKey,
		tools:         tools,
		maxIterations: maxIterations,
	}

	// OpenAI carries the system prompt as the first message in history
	if system != "" {
		s.history = append(s.history, openai.SystemMessage(system))
	}

	return s, nil
}

func (s *OpenAISource) ensureClient() *openai.Client {
	if s.client == nil {
		client := openai.NewClient(
			option.WithBaseURL(s.baseURL),
			option.WithAPIKey(s.apiKey),
		)
		s.client = &client
		if config.DebugLog != nil {
			config.DebugLog.Printf("[Agent] Created OpenAI client (model: %s)", s.model)
		}
	}
	return s.client
}

func (s *OpenAISource) Submit(ctx context.Context, prompt string) (*Stream, error) {
	if s.closed {
		return nil, ErrClosed
	}

	s.history = append(s.history, openai.UserMessage(prompt))

	stream := NewStream()
	go s.runTurn(ctx, stream)
	return stream, nil
}

func (s *OpenAISource) runTurn(ctx context.Context, stream *Stream) {
	defer stream.Close()

	client := s.ensureClient()

	var openaiTools []openai.ChatCompletionToolUnionParam
	if s.tools != nil {
		mcpTools, err := s.tools.GetTools(ctx)
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Agent] Failed to list tools, continuing without: %v", err)
			}
		} else {
			openaiTools = mcp.ToolsToOpenAI(mcpTools)
		}
	}

	for iteration := 0; iteration < s.maxIterations; iteration++ {
		params := openai.ChatCompletionNewParams{
			Messages: s.history,
			Model:    openai.ChatModel(s.model),
		}
		if len(openaiTools) > 0 {
			params.Tools = openaiTools
		}

		sdkStream := client.Chat.Completions.NewStreaming(ctx, params)
		acc := openai.ChatCompletionAccumulator{}

		for sdkStream.Next() {
			chunk := sdkStream.Current()
			acc.AddChunk(chunk)

			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				if !stream.Emit(ctx, TextDelta{Text: chunk.Choices[0].Delta.Content}) {
					return
				}
			}
		}

		if err := sdkStream.Err(); err != nil {
			stream.Emit(ctx, StreamFailed{Err: fmt.Errorf("OpenAI streaming error: %w", err)})
			return
		}

		if len(acc.Choices) == 0 {
			stream.Emit(ctx, StreamFailed{Err: fmt.Errorf("OpenAI returned no choices")})
			return
		}

		message := acc.Choices[0].Message
		s.history = append(s.history, message.ToParam())

		if len(message.ToolCalls) == 0 {
			stream.Emit(ctx, TurnCompleted{})
			return
		}

		// Run the requested tools and append each result as a tool message,
		// then loop for the follow-up response.
		for _, call := range message.ToolCalls {
			if !stream.Emit(ctx, ToolCallRequested{
				ID:        call.ID,
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			}) {
				return
			}

			result := s.execTool(ctx, call.Function.Name, call.Function.Arguments)

			if !stream.Emit(ctx, ToolCallCompleted{ID: call.ID, Result: result}) {
				return
			}

			s.history = append(s.history, openai.ToolMessage(result, call.ID))
		}
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Agent] Tool iteration limit (%d) reached, ending turn", s.maxIterations)
	}
	stream.Emit(ctx, TurnCompleted{})
}

func (s *OpenAISource) execTool(ctx context.Context, name, rawArgs string) string {
	if s.tools == nil {
		return fmt.Sprintf("Error: no tool runner available for %s", name)
	}

	var args map[string]any
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return fmt.Sprintf("Error: invalid tool arguments: %v", err)
		}
	}

	result, err := s.tools.RunTool(ctx, name, args)
	if err != nil {
		return fmt.Sprintf("Error executing tool: %v", err)
	}
	return result
}

func (s *OpenAISource) Close(ctx context.Context) error {
	s.closed = true
	s.client = nil
	s.history = nil
	return nil
}
