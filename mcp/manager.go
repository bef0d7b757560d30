package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"quill/config"
)

// Manager owns the lifecycle of all configured tool servers and exposes
// their tools to the agent backends. Namespaced tool names ("server.tool")
// route calls back to the right server.
type Manager struct {
	mu            sync.RWMutex
	config        *config.Config
	serversConfig *config.ToolServersConfig
	client        *Client
	activeServers map[string]bool
	failedServers map[string]error
}

func NewManager(cfg *config.Config, serversConfig *config.ToolServersConfig) *Manager {
	return &Manager{
		config:        cfg,
		serversConfig: serversConfig,
		client:        NewClient(),
		activeServers: make(map[string]bool),
		failedServers: make(map[string]error),
	}
}

func (m *Manager) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.ToolServersEnabled
}

// StartConfigured starts every enabled server from the tool servers config.
// A server that fails to start is recorded and skipped; the rest still come up.
func (m *Manager) StartConfigured(ctx context.Context) error {
	if config.DebugLog != nil {
		config.DebugLog.Printf("[MCP] StartConfigured: Starting tool server startup process")
	}

	if !m.config.ToolServersEnabled {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[MCP] StartConfigured: Tool servers disabled in config, skipping")
		}
		return nil
	}

	enabled := m.serversConfig.EnabledServers()

	if config.DebugLog != nil {
		config.DebugLog.Printf("[MCP] StartConfigured: Found %d enabled tool servers", len(enabled))
	}

	for _, name := range enabled {
		m.mu.RLock()
		running := m.activeServers[name] && m.failedServers[name] == nil
		m.mu.RUnlock()
		if running {
			continue
		}

		serverConfig := serverConfigFromEntry(name, m.serversConfig.Servers[name])

		// Starting a server can be slow, mutex is NOT held
		if err := m.client.Start(ctx, serverConfig); err != nil {
			fmt.Printf("Warning: Failed to start tool server %s: %v\n", name, err)
			if config.DebugLog != nil {
				config.DebugLog.Printf("[MCP] StartConfigured: ERROR starting tool server '%s': %v", name, err)
			}

			m.mu.Lock()
			m.failedServers[name] = err
			m.mu.Unlock()
			continue
		}

		if config.DebugLog != nil {
			config.DebugLog.Printf("[MCP] StartConfigured: Successfully started tool server '%s'", name)
		}

		m.mu.Lock()
		m.activeServers[name] = true
		delete(m.failedServers, name)
		m.mu.Unlock()
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[MCP] StartConfigured: Completed tool server startup process")
	}
	return nil
}

// serverConfigFromEntry maps a config file entry onto a connection config.
// For remote servers the Env map carries HTTP headers (auth tokens etc).
func serverConfigFromEntry(name string, entry config.ToolServerEntry) ServerConfig {
	sc := ServerConfig{
		Name:      name,
		Command:   entry.Command,
		Args:      entry.Args,
		ServerURL: entry.ServerURL,
		Transport: entry.Transport,
	}

	switch {
	case entry.ServerURL != "":
		sc.Headers = entry.Env
	default:
		sc.Env = entry.Env
	}

	return sc
}

// GetTools returns the namespaced tools of all running servers.
func (m *Manager) GetTools(ctx context.Context) ([]mcptypes.Tool, error) {
	m.mu.RLock()
	enabled := m.config.ToolServersEnabled
	m.mu.RUnlock()

	if !enabled {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[MCP] AUDIT: GetTools called while tool servers disabled")
		}
		return nil, nil
	}

	names := m.client.RunningServers()
	if len(names) == 0 {
		return nil, nil
	}

	return m.client.GetTools(ctx, names)
}

// CallTool executes a namespaced tool and returns the raw MCP result.
func (m *Manager) CallTool(ctx context.Context, toolName string, args map[string]any) (*mcptypes.CallToolResult, error) {
	m.mu.RLock()
	enabled := m.config.ToolServersEnabled
	m.mu.RUnlock()

	if !enabled {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[MCP] SECURITY: CallTool(%s) rejected - tool servers disabled", toolName)
		}
		return nil, fmt.Errorf("tool servers are disabled")
	}

	return m.client.CallTool(ctx, toolName, args)
}

// RunTool executes a tool and flattens the MCP result into a string for the
// agent backends.
func (m *Manager) RunTool(ctx context.Context, toolName string, args map[string]any) (string, error) {
	result, err := m.CallTool(ctx, toolName, args)
	if err != nil {
		return "", err
	}

	var resultContent string
	if len(result.Content) > 0 {
		// MCP result contains array of content items (interfaces)
		// Need to type-assert to extract text
		resultBytes, err := json.Marshal(result.Content)
		if err == nil {
			resultContent = string(resultBytes)
		} else {
			resultContent = fmt.Sprintf("Tool result (marshal error): %v", err)
		}
	} else {
		resultContent = "Tool executed successfully (no output)"
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[MCP] Tool %s result: %d chars", toolName, len(resultContent))
	}

	if result.IsError {
		return "", fmt.Errorf("tool %s failed: %s", toolName, resultContent)
	}

	return resultContent, nil
}

// StartServer starts one server by name from the tool servers config.
func (m *Manager) StartServer(ctx context.Context, name string) error {
	if config.DebugLog != nil {
		config.DebugLog.Printf("[MCP] StartServer: Called for tool server '%s'", name)
	}

	if !m.IsEnabled() {
		return nil
	}

	entry, ok := m.serversConfig.Servers[name]
	if !ok {
		return fmt.Errorf("tool server not configured: %s", name)
	}

	m.mu.Lock()
	// A previously failed server may be retried; clear its state first
	if m.failedServers[name] != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[MCP] StartServer: Tool server '%s' previously failed (%v), clearing state for retry", name, m.failedServers[name])
		}
		delete(m.activeServers, name)
		delete(m.failedServers, name)
	}

	if m.activeServers[name] {
		m.mu.Unlock()
		if config.DebugLog != nil {
			config.DebugLog.Printf("[MCP] StartServer: Tool server '%s' already running, skipping", name)
		}
		return nil
	}
	m.mu.Unlock()

	if err := m.client.Start(ctx, serverConfigFromEntry(name, entry)); err != nil {
		m.mu.Lock()
		m.failedServers[name] = err
		m.mu.Unlock()
		return fmt.Errorf("failed to start tool server: %w", err)
	}

	m.mu.Lock()
	m.activeServers[name] = true
	m.mu.Unlock()

	return nil
}

// RefreshServer re-reads the tool list of a running server. Servers can grow
// or shrink their tool set at runtime.
func (m *Manager) RefreshServer(ctx context.Context, name string) error {
	if !m.IsEnabled() {
		return fmt.Errorf("tool servers are disabled")
	}

	m.mu.RLock()
	running := m.activeServers[name]
	m.mu.RUnlock()

	if !running {
		return fmt.Errorf("tool server not running: %s", name)
	}

	return m.client.RefreshTools(ctx, name)
}

// StopServer stops one running server by name.
func (m *Manager) StopServer(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.activeServers[name] {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[MCP] StopServer: Tool server '%s' not running, skipping", name)
		}
		return nil
	}

	if err := m.client.Stop(ctx, name); err != nil {
		return fmt.Errorf("failed to stop tool server: %w", err)
	}

	delete(m.activeServers, name)
	return nil
}

// ActiveServerNames returns the names of servers that started successfully.
func (m *Manager) ActiveServerNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.config.ToolServersEnabled {
		return nil
	}

	var names []string
	for name := range m.activeServers {
		if m.activeServers[name] && m.failedServers[name] == nil {
			names = append(names, name)
		}
	}
	return names
}

// FailedServers returns a copy of the failed servers map.
func (m *Manager) FailedServers() map[string]error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	failures := make(map[string]error, len(m.failedServers))
	for k, v := range m.failedServers {
		failures[k] = v
	}
	return failures
}

func (m *Manager) Shutdown(ctx context.Context) error {
	if config.DebugLog != nil {
		config.DebugLog.Printf("[MCP] Shutdown: Called - beginning shutdown process")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		if err := m.client.Shutdown(ctx); err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[MCP] Shutdown: ERROR in client shutdown: %v", err)
			}
			return err
		}
	}

	m.activeServers = make(map[string]bool)
	m.failedServers = make(map[string]error)

	if config.DebugLog != nil {
		config.DebugLog.Printf("[MCP] Shutdown: Shutdown process completed")
	}

	return nil
}
