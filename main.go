package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"quill/agent"
	"quill/config"
	"quill/mcp"
	"quill/prompt"
	"quill/session"
	"quill/sink"
	"quill/storage"
	"quill/transcript"
)

const (
	Version = "v0.01.00"
	License = "Apache-2.0"
)

// defaultHandle is the editor surface the command-line shell drives. Each
// distinct handle gets its own session, history and agent connection.
const defaultHandle = "console"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize debug logging after config is loaded
	config.InitDebugLog(cfg.DataDir())

	creds := config.NewCredentialStore()
	if err := creds.Load(cfg.DataDir()); err != nil {
		fmt.Printf("Failed to load credentials: %v\n", err)
		os.Exit(1)
	}
	apiKey := creds.Get(cfg.Backend)

	transcripts, err := storage.NewTranscriptStorage(cfg.DataDir())
	if err != nil {
		fmt.Printf("Failed to initialize transcript storage: %v\n", err)
		os.Exit(1)
	}

	turnLog, err := storage.NewTurnLog(cfg.DataDir())
	if err != nil {
		fmt.Printf("Failed to initialize turn log: %v\n", err)
		os.Exit(1)
	}
	defer turnLog.Close()

	serversConfig, err := config.LoadToolServersConfig(cfg.DataDir())
	if err != nil {
		fmt.Printf("Failed to load tool server config: %v\n", err)
		os.Exit(1)
	}

	toolManager := mcp.NewManager(cfg, serversConfig)

	ctx := context.Background()
	var broker agent.ToolBroker
	if toolManager.IsEnabled() {
		if err := toolManager.StartConfigured(ctx); err != nil {
			fmt.Printf("Warning: tool server startup: %v\n", err)
		}
		broker = toolManager
	}
	defer func() {
		if err := toolManager.Shutdown(context.Background()); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("Warning: tool server shutdown: %v", err)
		}
	}()

	systemPrompt := cfg.DefaultSystemPrompt
	if systemPrompt == "" {
		systemPrompt = prompt.BuildSystemPrompt(cfg.WorkspaceDir())
	}

	sessions := session.NewManager(session.Options{
		NewSink: func(handle string) transcript.Sink {
			return sink.NewTerminalSink(os.Stdout, 0, handle)
		},
		Connect: func(ctx context.Context) (agent.Source, error) {
			return agent.NewSource(agent.OptionsFromConfig(cfg, apiKey, systemPrompt, broker))
		},
		OnTurnEnd: func(rec session.TurnRecord) {
			turn := storage.SavedTurn{
				TurnID:    rec.TurnID,
				Prompt:    rec.Prompt,
				FinalText: rec.FinalText,
				Status:    string(rec.Status),
				StartedAt: rec.StartedAt,
				EndedAt:   rec.EndedAt,
			}
			if err := transcripts.AppendTurn(rec.SessionID, rec.Handle, cfg.Model, turn); err != nil && config.DebugLog != nil {
				config.DebugLog.Printf("Warning: failed to save transcript turn: %v", err)
			}
			entry := storage.TurnLogEntry{
				TurnID:    rec.TurnID,
				SessionID: rec.SessionID,
				Handle:    rec.Handle,
				Prompt:    rec.Prompt,
				FinalText: rec.FinalText,
				Status:    string(rec.Status),
				StartedAt: rec.StartedAt,
				EndedAt:   rec.EndedAt,
			}
			if err := turnLog.Record(entry); err != nil && config.DebugLog != nil {
				config.DebugLog.Printf("Warning: failed to record turn: %v", err)
			}
		},
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sessions.ShutdownAll(shutdownCtx); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("Warning: session shutdown: %v", err)
		}
	}()

	// Ctrl-C cancels the in-flight turn instead of killing the process.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	go func() {
		for range sigCh {
			sessions.Get(defaultHandle).CancelTurn()
		}
	}()

	search := storage.NewSearchIndex(transcripts)

	fmt.Printf("quill %s (%s backend)\n", Version, cfg.Backend)
	fmt.Println("Type a prompt, /search <query>, /tools, /servers, /server start|stop|refresh <name>, /export [path], or /quit.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit" || line == "/exit":
			return

		case strings.HasPrefix(line, "/search "):
			runSearch(search, strings.TrimPrefix(line, "/search "))

		case line == "/tools":
			listTools(ctx, toolManager)

		case line == "/servers":
			listServers(toolManager)

		case strings.HasPrefix(line, "/server "):
			runServerCommand(ctx, toolManager, strings.TrimPrefix(line, "/server "))

		case line == "/export" || strings.HasPrefix(line, "/export "):
			arg := strings.TrimSpace(strings.TrimPrefix(line, "/export"))
			path, err := exportTranscript(transcripts, sessions.Get(defaultHandle).ID, defaultHandle, arg)
			if err != nil {
				fmt.Printf("Export failed: %v\n", err)
				continue
			}
			fmt.Printf("Exported to %s\n", path)

		default:
			sess := sessions.Get(defaultHandle)
			if err := sess.StartTurn(ctx, line, nil); err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			sess.Wait()
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
	}
}

func runSearch(search *storage.SearchIndex, query string) {
	matches, err := search.SearchAll(strings.TrimSpace(query))
	if err != nil {
		fmt.Printf("Search failed: %v\n", err)
		return
	}
	if len(matches) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, m := range matches {
		fmt.Printf("[%s] %s: %s\n", m.Handle, m.Prompt, m.Preview)
	}
}

// exportTranscript writes the session's saved transcript to path, defaulting
// to a timestamped file in the user's Downloads directory.
func exportTranscript(transcripts *storage.TranscriptStorage, sessionID, handle, path string) (string, error) {
	if path == "" {
		path = storage.GenerateExportPath(handle)
	}
	if err := transcripts.ExportToJSON(sessionID, path); err != nil {
		return "", err
	}
	return path, nil
}

func listServers(toolManager *mcp.Manager) {
	if !toolManager.IsEnabled() {
		fmt.Println("Tool servers are disabled.")
		return
	}

	active := toolManager.ActiveServerNames()
	failed := toolManager.FailedServers()

	if len(active) == 0 && len(failed) == 0 {
		fmt.Println("No tool servers running.")
		return
	}
	for _, name := range active {
		fmt.Printf("%s: running\n", name)
	}
	for name, err := range failed {
		fmt.Printf("%s: failed (%v)\n", name, err)
	}
}

func runServerCommand(ctx context.Context, toolManager *mcp.Manager, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		fmt.Println("Usage: /server start|stop|refresh <name>")
		return
	}
	action, name := fields[0], fields[1]

	var err error
	switch action {
	case "start":
		err = toolManager.StartServer(ctx, name)
	case "stop":
		err = toolManager.StopServer(ctx, name)
	case "refresh":
		err = toolManager.RefreshServer(ctx, name)
	default:
		fmt.Println("Usage: /server start|stop|refresh <name>")
		return
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Server %s: %s ok\n", name, action)
}

func listTools(ctx context.Context, toolManager *mcp.Manager) {
	if !toolManager.IsEnabled() {
		fmt.Println("Tool servers are disabled.")
		return
	}
	tools, err := toolManager.GetTools(ctx)
	if err != nil {
		fmt.Printf("Failed to list tools: %v\n", err)
		return
	}
	if len(tools) == 0 {
		fmt.Println("No tools available.")
		return
	}
	for _, tool := range tools {
		fmt.Printf("%s - %s\n", tool.Name, tool.Description)
	}
}
