package mcp

import (
	"context"
	"errors"
	"sort"
	"testing"

	"quill/config"
)

func testManager(enabled bool) *Manager {
	cfg := &config.Config{ToolServersEnabled: enabled}
	servers := &config.ToolServersConfig{
		Servers: map[string]config.ToolServerEntry{
			"files": {Enabled: true, Command: "npx", Args: []string{"-y", "@modelcontextprotocol/server-filesystem", "/tmp"}},
		},
	}
	return NewManager(cfg, servers)
}

func TestStartServerRejectsUnconfiguredName(t *testing.T) {
	m := testManager(true)

	err := m.StartServer(context.Background(), "nope")
	if err == nil {
		t.Fatal("starting an unconfigured server should fail")
	}
}

func TestStartServerNoopWhenDisabled(t *testing.T) {
	m := testManager(false)

	if err := m.StartServer(context.Background(), "files"); err != nil {
		t.Fatalf("StartServer while disabled should be a no-op, got %v", err)
	}
	if names := m.ActiveServerNames(); len(names) != 0 {
		t.Errorf("no server should be active, got %v", names)
	}
}

func TestActiveServerNamesExcludesFailed(t *testing.T) {
	m := testManager(true)
	m.activeServers["alpha"] = true
	m.activeServers["beta"] = true
	m.failedServers["beta"] = errors.New("spawn failed")

	names := m.ActiveServerNames()
	sort.Strings(names)
	if len(names) != 1 || names[0] != "alpha" {
		t.Errorf("ActiveServerNames = %v, want [alpha]", names)
	}
}

func TestActiveServerNamesNilWhenDisabled(t *testing.T) {
	m := testManager(false)
	m.activeServers["alpha"] = true

	if names := m.ActiveServerNames(); names != nil {
		t.Errorf("disabled manager should report no active servers, got %v", names)
	}
}

func TestFailedServersReturnsCopy(t *testing.T) {
	m := testManager(true)
	m.failedServers["broken"] = errors.New("spawn failed")

	failures := m.FailedServers()
	if len(failures) != 1 || failures["broken"] == nil {
		t.Fatalf("FailedServers = %v", failures)
	}

	delete(failures, "broken")
	if m.FailedServers()["broken"] == nil {
		t.Error("mutating the returned map must not affect the manager")
	}
}

func TestStopServerNotRunningIsNoop(t *testing.T) {
	m := testManager(true)

	if err := m.StopServer(context.Background(), "files"); err != nil {
		t.Errorf("stopping a server that is not running should be a no-op, got %v", err)
	}
}

func TestRefreshServerNotRunning(t *testing.T) {
	m := testManager(true)

	if err := m.RefreshServer(context.Background(), "files"); err == nil {
		t.Error("refreshing a server that is not running should fail")
	}
}

func TestRefreshServerDisabled(t *testing.T) {
	m := testManager(false)

	if err := m.RefreshServer(context.Background(), "files"); err == nil {
		t.Error("refresh while disabled should fail")
	}
}
