package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ToolServerEntry describes one MCP tool server connection.
// Local servers are spawned from Command/Args; remote servers are reached at
// ServerURL instead.
type ToolServerEntry struct {
	Enabled   bool              `toml:"enabled"`
	Command   string            `toml:"command,omitempty"`
	Args      []string          `toml:"args,omitempty"`
	Env       map[string]string `toml:"env,omitempty"`
	ServerURL string            `toml:"server_url,omitempty"`
	Transport string            `toml:"transport,omitempty"` // "sse" (default) or "streamable-http"
}

// ToolServersConfig is the opaque tool-server mapping supplied at session
// creation: server name → connection descriptor.
type ToolServersConfig struct {
	Servers map[string]ToolServerEntry `toml:"servers"`
}

// DefaultToolServers returns the fallback configuration used when no
// toolservers.toml is present: a single well-known demo server.
func DefaultToolServers() *ToolServersConfig {
	return &ToolServersConfig{
		Servers: map[string]ToolServerEntry{
			"demo": {
				Enabled: true,
				Command: "npx",
				Args:    []string{"-y", "@modelcontextprotocol/server-everything"},
			},
		},
	}
}

// LoadToolServersConfig loads toolservers.toml from the data directory.
// A missing file is not an error; the default fallback server is returned.
func LoadToolServersConfig(dataDir string) (*ToolServersConfig, error) {
	configPath := filepath.Join(dataDir, "toolservers.toml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if DebugLog != nil {
			DebugLog.Printf("No tool server config found, using default demo server")
		}
		return DefaultToolServers(), nil
	}

	var config ToolServersConfig
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return nil, fmt.Errorf("failed to decode tool server config: %w", err)
	}

	if len(config.Servers) == 0 {
		return DefaultToolServers(), nil
	}

	return &config, nil
}

// SaveToolServersConfig writes toolservers.toml to the data directory.
func SaveToolServersConfig(dataDir string, config *ToolServersConfig) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(dataDir, "toolservers.toml")
	// Create file with secure permissions (0600 - may contain server env secrets)
	f, err := os.OpenFile(configPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create tool server config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode tool server config: %w", err)
	}

	return nil
}

// EnabledServers returns the names of enabled servers in the mapping.
func (tc *ToolServersConfig) EnabledServers() []string {
	var names []string
	for name, entry := range tc.Servers {
		if entry.Enabled {
			names = append(names, name)
		}
	}
	return names
}
