package mcp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
	globalconfig "quill/config"
)

type ProcessManager struct {
	servers map[string]*ServerProcess
	mu      sync.RWMutex
}

func NewProcessManager() *ProcessManager {
	return &ProcessManager{
		servers: make(map[string]*ServerProcess),
	}
}

func (pm *ProcessManager) StartServer(ctx context.Context, config ServerConfig) error {
	isRemote := config.ServerURL != ""

	// Check if already running
	pm.mu.Lock()
	switch {
	case pm.servers[config.Name] != nil && pm.servers[config.Name].Running:
		pm.mu.Unlock()
		return fmt.Errorf("tool server %s already running", config.Name)
	}
	pm.mu.Unlock()

	var mcpClient *client.Client
	var err error
	var capturedCmd *exec.Cmd

	switch {
	case isRemote:
		mcpClient, err = pm.createRemoteClient(ctx, config)
		if err != nil {
			return fmt.Errorf("failed to connect to remote tool server %s: %w", config.Name, err)
		}

		switch {
		case globalconfig.DebugLog != nil:
			globalconfig.DebugLog.Printf("[MCP] Connected to remote tool server '%s' at %s",
				config.Name, config.ServerURL)
		}

	default:
		// Local server - spawn over stdio
		mcpClient, capturedCmd, err = pm.createLocalClient(ctx, config)
		if err != nil {
			return fmt.Errorf("failed to start local tool server %s: %w", config.Name, err)
		}
	}

	// Initialize handshake (same for remote and local)
	initReq := mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: "2025-06-18",
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    "quill",
				Version: "1.0.0",
			},
		},
	}

	_, err = mcpClient.Initialize(ctx, initReq)
	if err != nil {
		return fmt.Errorf("failed to initialize tool server %s: %w", config.Name, err)
	}

	toolsResult, err := mcpClient.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list tools for %s: %w", config.Name, err)
	}

	pm.mu.Lock()
	pm.servers[config.Name] = &ServerProcess{
		Name:     config.Name,
		Process:  capturedCmd, // nil for remote
		Client:   mcpClient,
		Tools:    toolsResult.Tools,
		Running:  true,
		IsRemote: isRemote,
	}
	pm.mu.Unlock()

	return nil
}

func (pm *ProcessManager) StopServer(ctx context.Context, name string) error {
	pm.mu.Lock()

	proc, exists := pm.servers[name]
	switch {
	case !exists:
		pm.mu.Unlock()
		return fmt.Errorf("tool server %s not found", name)
	}

	// Remove from map immediately so it can't be used
	proc.Running = false
	delete(pm.servers, name)
	pm.mu.Unlock()

	// Close client
	switch {
	case proc.Client != nil:
		closeCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
		defer cancel()

		switch {
		case globalconfig.DebugLog != nil:
			globalconfig.DebugLog.Printf("[MCP] StopServer: Attempting to close client for '%s' (1s timeout)", name)
		}

		closeDone := make(chan error, 1)
		go func() {
			closeDone <- proc.Client.Close()
		}()

		select {
		case <-closeDone:
			// Closed
		case <-closeCtx.Done():
			// Timeout
		}
	}

	// Kill local process ONLY (skip for remote)
	switch {
	case !proc.IsRemote && proc.Process != nil && proc.Process.Process != nil:
		switch {
		case globalconfig.DebugLog != nil:
			globalconfig.DebugLog.Printf("[MCP] StopServer: Forcefully killing process for '%s' (PID: %d)", name, proc.Process.Process.Pid)
		}

		if err := proc.Process.Process.Kill(); err != nil {
			switch {
			case globalconfig.DebugLog != nil:
				globalconfig.DebugLog.Printf("[MCP] StopServer: Error killing process for '%s': %v", name, err)
			}
		}
	}

	switch {
	case globalconfig.DebugLog != nil:
		globalconfig.DebugLog.Printf("[MCP] StopServer: Tool server '%s' stopped and removed from map", name)
	}

	return nil
}

func (pm *ProcessManager) GetClient(name string) (*client.Client, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	proc, exists := pm.servers[name]
	if !exists || !proc.Running {
		return nil, fmt.Errorf("tool server %s not running", name)
	}

	return proc.Client, nil
}

func (pm *ProcessManager) GetTools(name string) ([]mcptypes.Tool, error) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	proc, exists := pm.servers[name]
	if !exists || !proc.Running {
		return nil, fmt.Errorf("tool server %s not running", name)
	}

	return proc.Tools, nil
}

func (pm *ProcessManager) RefreshTools(ctx context.Context, name string) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	proc, exists := pm.servers[name]
	if !exists || !proc.Running {
		return fmt.Errorf("tool server %s not running", name)
	}

	toolsResult, err := proc.Client.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("failed to refresh tools: %w", err)
	}

	proc.Tools = toolsResult.Tools
	return nil
}

func (pm *ProcessManager) RunningServers() []string {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	names := make([]string, 0, len(pm.servers))
	for name, proc := range pm.servers {
		if proc.Running {
			names = append(names, name)
		}
	}
	return names
}

func (pm *ProcessManager) Shutdown(ctx context.Context) error {
	// Get list of server names while holding lock
	pm.mu.Lock()
	names := make([]string, 0, len(pm.servers))
	for name := range pm.servers {
		names = append(names, name)
	}
	pm.mu.Unlock()

	if globalconfig.DebugLog != nil {
		globalconfig.DebugLog.Printf("[MCP] Shutdown: Starting parallel shutdown of %d tool servers", len(names))
	}

	// Shutdown all servers in PARALLEL for faster shutdown
	var wg sync.WaitGroup
	errChan := make(chan error, len(names))

	for _, name := range names {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if globalconfig.DebugLog != nil {
				globalconfig.DebugLog.Printf("[MCP] Shutdown: Stopping tool server '%s' (parallel)", id)
			}
			if err := pm.StopServer(ctx, id); err != nil {
				if globalconfig.DebugLog != nil {
					globalconfig.DebugLog.Printf("[MCP] Shutdown: Error stopping tool server '%s': %v", id, err)
				}
				errChan <- err
			}
		}(name)
	}

	// Wait for all servers to finish
	wg.Wait()
	close(errChan)

	if globalconfig.DebugLog != nil {
		globalconfig.DebugLog.Printf("[MCP] Shutdown: All tool servers stopped (parallel shutdown complete)")
	}

	// Collect errors
	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	return nil
}

// createRemoteClient creates an MCP client for remote tool servers
func (pm *ProcessManager) createRemoteClient(ctx context.Context, config ServerConfig) (*client.Client, error) {
	// Default to SSE if transport not specified
	transportType := config.Transport
	switch {
	case transportType == "":
		transportType = "sse"
	}

	switch transportType {
	case "streamable-http":
		return pm.createStreamableHttpClient(ctx, config)
	case "sse":
		return pm.createSSEClient(ctx, config)
	default:
		return nil, fmt.Errorf("unknown transport type: %s", transportType)
	}
}

// createSSEClient creates an SSE client, with header-based auth when configured
func (pm *ProcessManager) createSSEClient(ctx context.Context, config ServerConfig) (*client.Client, error) {
	var opts []transport.ClientOption
	switch {
	case len(config.Headers) > 0:
		opts = append(opts, transport.WithHeaders(config.Headers))
	}

	mcpClient, err := client.NewSSEMCPClient(config.ServerURL, opts...)
	if err != nil {
		return nil, err
	}

	// Start SSE transport (required before Initialize/ListTools)
	transportObj := mcpClient.GetTransport()
	if err := transportObj.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start SSE transport: %w", err)
	}

	switch {
	case globalconfig.DebugLog != nil:
		globalconfig.DebugLog.Printf("[MCP] Started SSE transport for %s", config.Name)
	}

	return mcpClient, nil
}

// createStreamableHttpClient creates a client with streamable HTTP transport
func (pm *ProcessManager) createStreamableHttpClient(ctx context.Context, config ServerConfig) (*client.Client, error) {
	var opts []transport.StreamableHTTPCOption
	switch {
	case len(config.Headers) > 0:
		opts = append(opts, transport.WithHTTPHeaders(config.Headers))
	}

	mcpClient, err := client.NewStreamableHttpClient(config.ServerURL, opts...)
	if err != nil {
		return nil, err
	}

	// Start HTTP transport (required before Initialize/ListTools)
	transportObj := mcpClient.GetTransport()
	if err := transportObj.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start HTTP transport: %w", err)
	}

	switch {
	case globalconfig.DebugLog != nil:
		globalconfig.DebugLog.Printf("[MCP] Started streamable HTTP transport for %s", config.Name)
	}

	return mcpClient, nil
}

// createLocalClient creates a client for local stdio servers (returns cmd as well)
func (pm *ProcessManager) createLocalClient(ctx context.Context, config ServerConfig) (*client.Client, *exec.Cmd, error) {
	env := configToEnv(config.Env)
	var capturedCmd *exec.Cmd

	switch {
	case globalconfig.DebugLog != nil:
		globalconfig.DebugLog.Printf("[MCP] StartServer: Tool server '%s' - Command='%s', Args=%v",
			config.Name, config.Command, config.Args)
	}

	cmdFunc := func(ctx context.Context, command string, env []string, args []string) (*exec.Cmd, error) {
		cmd := exec.CommandContext(ctx, command, args...)
		cmd.Env = env
		capturedCmd = cmd

		switch {
		case globalconfig.DebugLog != nil:
			globalconfig.DebugLog.Printf("[MCP] StartServer: Created process for '%s' (will have PID after start)", config.Name)
		}

		return cmd, nil
	}

	mcpClient, err := client.NewStdioMCPClientWithOptions(
		config.Command,
		env,
		config.Args,
		transport.WithCommandFunc(cmdFunc),
	)

	if err != nil {
		return nil, nil, err
	}

	// Log PID
	switch {
	case capturedCmd != nil && capturedCmd.Process != nil && globalconfig.DebugLog != nil:
		globalconfig.DebugLog.Printf("[MCP] Started local tool server with PID %d", capturedCmd.Process.Pid)
	}

	return mcpClient, capturedCmd, nil
}

func configToEnv(envMap map[string]string) []string {
	// Start with current process environment to preserve PATH and other system vars
	env := os.Environ()

	for k, v := range envMap {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	return env
}
