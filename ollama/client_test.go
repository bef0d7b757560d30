package ollama

import "testing"

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient("", "")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.Model() != "llama3.1:latest" {
		t.Errorf("default model = %q", c.Model())
	}
	if c.baseURL != "http://localhost:11434" {
		t.Errorf("default base URL = %q", c.baseURL)
	}
}

func TestNewClientInvalidURL(t *testing.T) {
	if _, err := NewClient("://not-a-url", "llama3.1"); err == nil {
		t.Error("invalid URL should fail")
	}
}

func TestNewClientKeepsModel(t *testing.T) {
	c, err := NewClient("http://10.0.0.5:11434", "qwen2.5:7b")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if c.Model() != "qwen2.5:7b" {
		t.Errorf("Model() = %q, want qwen2.5:7b", c.Model())
	}
	if !c.SupportsToolCalling() {
		t.Error("qwen models support tool calling")
	}
}

func TestModelSupportsToolCalling(t *testing.T) {
	tests := []struct {
		model string
		want  bool
	}{
		{"llama3.1:latest", true},
		{"llama3.2:3b", true},
		{"llama3:8b", false},
		{"llama3-gradient:8b", false},
		{"qwen2.5:7b", true},
		{"mistral:7b", true},
		{"gemma2:9b", false},
		{"codellama:13b", false},
		{"unknown-model:1b", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := ModelSupportsToolCalling(tt.model); got != tt.want {
				t.Errorf("ModelSupportsToolCalling(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}
