package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/quill",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Agent: BackendConfig{
			Backend: "anthropic",
		},
		ToolServersEnabled: true,
		MaxToolIterations:  5,
	}
}

func GenerateSystemConfigTemplate() string {
	return `# Quill System Configuration
# Location: ~/.config/quill/settings.toml
# This file uses TOML format: https://toml.io

# Directory where transcripts and user config are stored
data_directory = "~/.local/share/quill"
`
}

func GenerateUserConfigTemplate() string {
	return `# Quill User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

[agent]
# Agent runtime backend: "anthropic", "openai" or "ollama"
backend = "anthropic"

# Model override (optional; each backend has a sensible default)
model = ""

# API base URL override (optional)
base_url = ""

# Default system prompt for new sessions (optional)
# Example: "You are a helpful coding assistant."
default_system_prompt = ""

# Workspace directory referenced in the system prompt (optional,
# defaults to the current directory)
workspace_directory = ""

# Tool servers (MCP). When enabled and no toolservers.toml is present,
# a default demo server is used.
tool_servers_enabled = true

# Upper bound on tool-call rounds within a single turn
max_tool_iterations = 5
`
}
