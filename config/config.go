package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type BackendConfig struct {
	// Backend selects the agent runtime: "anthropic", "openai" or "ollama".
	Backend string `toml:"backend"`
	BaseURL string `toml:"base_url,omitempty"`
	Model   string `toml:"model,omitempty"`
}

type UserConfig struct {
	Agent               BackendConfig `toml:"agent"`
	DefaultSystemPrompt string        `toml:"default_system_prompt,omitempty"`
	WorkspaceDirectory  string        `toml:"workspace_directory,omitempty"`
	ToolServersEnabled  bool          `toml:"tool_servers_enabled"`
	MaxToolIterations   int           `toml:"max_tool_iterations,omitempty"`
}

type Config struct {
	DataDirectory       string
	Backend             string
	BaseURL             string
	Model               string
	DefaultSystemPrompt string
	WorkspaceDirectory  string
	ToolServersEnabled  bool
	MaxToolIterations   int
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

func (c *Config) WorkspaceDir() string {
	if c.WorkspaceDirectory == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "."
		}
		return wd
	}
	return ExpandPath(c.WorkspaceDirectory)
}

func (c *Config) applyEnvOverrides() {
	if backend := os.Getenv("QUILL_BACKEND"); backend != "" {
		c.Backend = backend
	}
	if model := os.Getenv("QUILL_MODEL"); model != "" {
		c.Model = model
	}
	if baseURL := os.Getenv("QUILL_BASE_URL"); baseURL != "" {
		c.BaseURL = baseURL
	}
	if dataDir := os.Getenv("QUILL_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
	if workspace := os.Getenv("QUILL_WORKSPACE"); workspace != "" {
		c.WorkspaceDirectory = workspace
	}
}

func CheckDebug() bool {
	debug := os.Getenv("QUILL_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// Create debug log with secure permissions (0600 - may contain sensitive debug info)
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (QUILL_DEBUG=%s) ===", os.Getenv("QUILL_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

func Load() (*Config, error) {
	cfg := &Config{
		DataDirectory:     "~/.local/share/quill",
		Backend:           "anthropic",
		Model:             "",
		MaxToolIterations: 5,
	}

	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}
	cfg.DataDirectory = systemCfg.DataDirectory

	dataDir := cfg.DataDir()
	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if userCfg.Agent.Backend != "" {
		cfg.Backend = userCfg.Agent.Backend
	}
	cfg.BaseURL = userCfg.Agent.BaseURL
	cfg.Model = userCfg.Agent.Model
	cfg.DefaultSystemPrompt = userCfg.DefaultSystemPrompt
	cfg.WorkspaceDirectory = userCfg.WorkspaceDirectory
	cfg.ToolServersEnabled = userCfg.ToolServersEnabled
	if userCfg.MaxToolIterations > 0 {
		cfg.MaxToolIterations = userCfg.MaxToolIterations
	}

	cfg.applyEnvOverrides()

	dataDir = cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Ensure data directory has correct permissions (fix if needed)
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	return cfg, nil
}
