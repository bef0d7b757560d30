package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/ollama/ollama/api"
	"quill/config"
	"quill/mcp"
	"quill/ollama"
)

// OllamaSource streams turns from a local Ollama server. Ollama does not
// assign tool call IDs, so synthetic ones are generated to keep the event
// correlation contract.
type OllamaSource struct {
	client        *ollama.Client
	tools         ToolBroker
	maxIterations int
	history       []api.Message
	verified      bool
	closed        bool
}

func NewOllamaSource(baseURL, model, system string, tools ToolBroker, maxIterations int) (*OllamaSource, error) {
	client, err := ollama.NewClient(baseURL, model)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}
	if maxIterations <= 0 {
		maxIterations = 5
	}

	s := &OllamaSource{
		client:        client,
		tools:         tools,
		maxIterations: maxIterations,
	}

	if system != "" {
		s.history = append(s.history, api.Message{Role: "system", Content: system})
	}

	return s, nil
}

func (s *OllamaSource) Submit(ctx context.Context, prompt string) (*Stream, error) {
	if s.closed {
		return nil, ErrClosed
	}

	// Check the server once before the first turn so an unreachable Ollama
	// surfaces as a synchronous connection fault, not a mid-stream failure.
	if !s.verified {
		if err := s.client.Ping(ctx); err != nil {
			return nil, fmt.Errorf("Ollama server unreachable: %w", err)
		}
		s.verified = true
	}

	s.history = append(s.history, api.Message{Role: "user", Content: prompt})

	stream := NewStream()
	go s.runTurn(ctx, stream)
	return stream, nil
}

func (s *OllamaSource) runTurn(ctx context.Context, stream *Stream) {
	defer stream.Close()

	var ollamaTools []api.Tool
	if s.tools != nil {
		if !s.client.SupportsToolCalling() {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Agent] Model %s does not support tool calling, streaming text only", s.client.Model())
			}
		} else if mcpTools, err := s.tools.GetTools(ctx); err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Agent] Failed to list tools, continuing without: %v", err)
			}
		} else {
			ollamaTools = mcp.ToolsToOllama(mcpTools)
		}
	}

	for iteration := 0; iteration < s.maxIterations; iteration++ {
		var assistantText string
		var pendingCalls []api.ToolCall
		emitFailed := false

		callback := func(chunk string, toolCalls []api.ToolCall) error {
			if chunk != "" {
				assistantText += chunk
				if !stream.Emit(ctx, TextDelta{Text: chunk}) {
					emitFailed = true
					return context.Canceled
				}
			}
			pendingCalls = append(pendingCalls, toolCalls...)
			return nil
		}

		var err error
		if len(ollamaTools) == 0 {
			err = s.client.Chat(ctx, s.history, callback)
		} else {
			err = s.client.ChatWithTools(ctx, s.history, ollamaTools, callback)
		}

		if emitFailed {
			return
		}
		if err != nil {
			stream.Emit(ctx, StreamFailed{Err: fmt.Errorf("Ollama streaming error: %w", err)})
			return
		}

		s.history = append(s.history, api.Message{
			Role:      "assistant",
			Content:   assistantText,
			ToolCalls: pendingCalls,
		})

		if len(pendingCalls) == 0 {
			stream.Emit(ctx, TurnCompleted{})
			return
		}

		for _, call := range pendingCalls {
			name, args := mcp.OllamaToolCallArgs(call)
			callID := uuid.NewString()

			rawArgs, _ := json.Marshal(args)
			if !stream.Emit(ctx, ToolCallRequested{
				ID:        callID,
				Name:      name,
				Arguments: string(rawArgs),
			}) {
				return
			}

			result := s.execTool(ctx, name, args)

			if !stream.Emit(ctx, ToolCallCompleted{ID: callID, Result: result}) {
				return
			}

			s.history = append(s.history, api.Message{Role: "tool", Content: result})
		}
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Agent] Tool iteration limit (%d) reached, ending turn", s.maxIterations)
	}
	stream.Emit(ctx, TurnCompleted{})
}

func (s *OllamaSource) execTool(ctx context.Context, name string, args map[string]any) string {
	if s.tools == nil {
		return fmt.Sprintf("Error: no tool runner available for %s", name)
	}

	result, err := s.tools.RunTool(ctx, name, args)
	if err != nil {
		return fmt.Sprintf("Error executing tool: %v", err)
	}
	return result
}

func (s *OllamaSource) Close(ctx context.Context) error {
	s.closed = true
	s.history = nil
	return nil
}
