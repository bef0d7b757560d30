package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// CredentialStore manages API credentials, stored as a TOML map of
// backend id → API key. Environment variables take precedence over the
// file so keys never have to touch disk on CI-style setups.
type CredentialStore struct {
	credentials map[string]string
}

// NewCredentialStore creates an empty credential store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		credentials: make(map[string]string),
	}
}

// Load loads credentials from disk. A missing file is not an error.
func (c *CredentialStore) Load(dataDir string) error {
	path := credentialsPath(dataDir)

	if !FileExists(path) {
		return nil
	}

	var creds map[string]string
	if _, err := toml.DecodeFile(path, &creds); err != nil {
		return fmt.Errorf("failed to parse credentials file: %w", err)
	}

	c.credentials = creds
	if c.credentials == nil {
		c.credentials = make(map[string]string)
	}
	return nil
}

// Save writes the credentials file with user-only permissions.
func (c *CredentialStore) Save(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// 0600 - contains API keys
	f, err := os.OpenFile(credentialsPath(dataDir), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create credentials file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c.credentials); err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	return nil
}

// Get retrieves the API key for a backend. Well-known environment variables
// win over the stored value.
func (c *CredentialStore) Get(backendID string) string {
	if key := os.Getenv(envVarForBackend(backendID)); key != "" {
		return key
	}
	return c.credentials[backendID]
}

// Set stores an API key for a backend.
func (c *CredentialStore) Set(backendID, apiKey string) {
	c.credentials[backendID] = apiKey
}

// Delete removes the stored key for a backend.
func (c *CredentialStore) Delete(backendID string) {
	delete(c.credentials, backendID)
}

func envVarForBackend(backendID string) string {
	switch backendID {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

func credentialsPath(dataDir string) string {
	return filepath.Join(dataDir, "credentials.toml")
}
