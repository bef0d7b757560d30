package config

import (
	"sort"
	"testing"
)

func TestLoadToolServersConfigFallsBackToDefault(t *testing.T) {
	cfg, err := LoadToolServersConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadToolServersConfig failed: %v", err)
	}

	entry, ok := cfg.Servers["demo"]
	if !ok {
		t.Fatal("missing config should fall back to the demo server")
	}
	if !entry.Enabled {
		t.Error("default demo server should be enabled")
	}
	if entry.Command != "npx" {
		t.Errorf("demo command = %q, want npx", entry.Command)
	}
}

func TestToolServersConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()

	original := &ToolServersConfig{
		Servers: map[string]ToolServerEntry{
			"files": {
				Enabled: true,
				Command: "npx",
				Args:    []string{"-y", "@modelcontextprotocol/server-filesystem", "/tmp"},
				Env:     map[string]string{"LOG_LEVEL": "warn"},
			},
			"remote": {
				Enabled:   false,
				ServerURL: "https://tools.example.com/sse",
				Transport: "sse",
			},
		},
	}

	if err := SaveToolServersConfig(dir, original); err != nil {
		t.Fatalf("SaveToolServersConfig failed: %v", err)
	}

	loaded, err := LoadToolServersConfig(dir)
	if err != nil {
		t.Fatalf("LoadToolServersConfig failed: %v", err)
	}

	files, ok := loaded.Servers["files"]
	if !ok {
		t.Fatal("files server missing after round trip")
	}
	if len(files.Args) != 3 || files.Args[1] != "@modelcontextprotocol/server-filesystem" {
		t.Errorf("args not round-tripped: %v", files.Args)
	}
	if files.Env["LOG_LEVEL"] != "warn" {
		t.Errorf("env not round-tripped: %v", files.Env)
	}

	remote, ok := loaded.Servers["remote"]
	if !ok {
		t.Fatal("remote server missing after round trip")
	}
	if remote.ServerURL != "https://tools.example.com/sse" {
		t.Errorf("server url = %q", remote.ServerURL)
	}
}

func TestEnabledServers(t *testing.T) {
	cfg := &ToolServersConfig{
		Servers: map[string]ToolServerEntry{
			"a": {Enabled: true},
			"b": {Enabled: false},
			"c": {Enabled: true},
		},
	}

	names := cfg.EnabledServers()
	sort.Strings(names)
	if len(names) != 2 || names[0] != "a" || names[1] != "c" {
		t.Errorf("EnabledServers = %v, want [a c]", names)
	}
}
