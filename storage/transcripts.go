package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SavedTurn is one prompt/response exchange within a saved transcript.
type SavedTurn struct {
	TurnID    string    `json:"turn_id"`
	Prompt    string    `json:"prompt"`
	FinalText string    `json:"final_text"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
}

// Transcript is the saved record of one session.
type Transcript struct {
	ID        string      `json:"id"`
	Handle    string      `json:"handle"`
	Model     string      `json:"model"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Turns     []SavedTurn `json:"turns"`
}

// TranscriptMetadata is a lightweight version of Transcript for listing
type TranscriptMetadata struct {
	ID        string    `json:"id"`
	Handle    string    `json:"handle"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TurnCount int       `json:"turn_count"`
}

// TranscriptStorage handles transcript persistence
type TranscriptStorage struct {
	transcriptsDir string
}

// NewTranscriptStorage creates a new transcript storage
func NewTranscriptStorage(dataDir string) (*TranscriptStorage, error) {
	transcriptsDir := filepath.Join(dataDir, "transcripts")

	// Create transcripts directory if it doesn't exist (0700 - user-only access)
	if err := os.MkdirAll(transcriptsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create transcripts directory: %w", err)
	}

	return &TranscriptStorage{
		transcriptsDir: transcriptsDir,
	}, nil
}

// Save saves a transcript to disk
func (ts *TranscriptStorage) Save(transcript *Transcript) error {
	if transcript.ID == "" {
		transcript.ID = uuid.New().String()
	}

	transcript.UpdatedAt = time.Now()
	if transcript.CreatedAt.IsZero() {
		transcript.CreatedAt = transcript.UpdatedAt
	}

	filename := fmt.Sprintf("%s.json", transcript.ID)
	filepath := filepath.Join(ts.transcriptsDir, filename)

	data, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	// Use 0600 permissions - transcripts contain conversation history
	if err := os.WriteFile(filepath, data, 0600); err != nil {
		return fmt.Errorf("failed to write transcript file: %w", err)
	}

	return nil
}

// Load loads a transcript from disk
func (ts *TranscriptStorage) Load(id string) (*Transcript, error) {
	filename := fmt.Sprintf("%s.json", id)
	filepath := filepath.Join(ts.transcriptsDir, filename)

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript file: %w", err)
	}

	var transcript Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}

	return &transcript, nil
}

// AppendTurn records a turn under the transcript for handle, creating the
// transcript on first use. Transcripts are keyed by session id but looked up
// by handle so repeated turns in one editor surface accumulate in one file.
func (ts *TranscriptStorage) AppendTurn(sessionID, handle, model string, turn SavedTurn) error {
	transcript, err := ts.Load(sessionID)
	if err != nil {
		transcript = &Transcript{
			ID:     sessionID,
			Handle: handle,
			Model:  model,
		}
	}

	transcript.Turns = append(transcript.Turns, turn)
	return ts.Save(transcript)
}

// List returns metadata for all transcripts, sorted by update time (newest first)
func (ts *TranscriptStorage) List() ([]TranscriptMetadata, error) {
	entries, err := os.ReadDir(ts.transcriptsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcripts directory: %w", err)
	}

	var transcripts []TranscriptMetadata

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		filepath := filepath.Join(ts.transcriptsDir, entry.Name())
		data, err := os.ReadFile(filepath)
		if err != nil {
			continue // Skip corrupted files
		}

		var transcript Transcript
		if err := json.Unmarshal(data, &transcript); err != nil {
			continue // Skip corrupted files
		}

		transcripts = append(transcripts, TranscriptMetadata{
			ID:        transcript.ID,
			Handle:    transcript.Handle,
			Model:     transcript.Model,
			CreatedAt: transcript.CreatedAt,
			UpdatedAt: transcript.UpdatedAt,
			TurnCount: len(transcript.Turns),
		})
	}

	// Sort by UpdatedAt (newest first)
	sort.Slice(transcripts, func(i, j int) bool {
		return transcripts[i].UpdatedAt.After(transcripts[j].UpdatedAt)
	})

	return transcripts, nil
}

// Delete deletes a transcript from disk
func (ts *TranscriptStorage) Delete(id string) error {
	filename := fmt.Sprintf("%s.json", id)
	filepath := filepath.Join(ts.transcriptsDir, filename)

	if err := os.Remove(filepath); err != nil {
		return fmt.Errorf("failed to delete transcript file: %w", err)
	}

	return nil
}

// ExportToJSON exports a transcript to a JSON file at the specified path
func (ts *TranscriptStorage) ExportToJSON(id string, exportPath string) error {
	transcript, err := ts.Load(id)
	if err != nil {
		return fmt.Errorf("failed to load transcript: %w", err)
	}

	data, err := json.MarshalIndent(transcript, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	// Ensure directory exists (0700 - user-only access)
	dir := filepath.Dir(exportPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(exportPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// SanitizeFilename removes or replaces characters that are invalid in filenames
func SanitizeFilename(name string) string {
	// Replace problematic characters with hyphens
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	name = strings.ReplaceAll(name, ":", "-")
	name = strings.ReplaceAll(name, "*", "-")
	name = strings.ReplaceAll(name, "?", "-")
	name = strings.ReplaceAll(name, "\"", "-")
	name = strings.ReplaceAll(name, "<", "-")
	name = strings.ReplaceAll(name, ">", "-")
	name = strings.ReplaceAll(name, "|", "-")
	name = strings.ReplaceAll(name, " ", "-")
	name = strings.ReplaceAll(name, "\n", "-")
	name = strings.ReplaceAll(name, "\r", "-")

	// Remove leading/trailing hyphens and dots
	name = strings.Trim(name, "-.")

	// Limit length
	if len(name) > 50 {
		name = name[:50]
	}

	// If empty after sanitization, use generic name
	if name == "" {
		name = "transcript"
	}

	return name
}

// GenerateExportPath generates a default export path for a transcript
func GenerateExportPath(handle string) string {
	homeDir := os.Getenv("HOME")
	if homeDir == "" {
		homeDir = os.Getenv("USERPROFILE") // Windows fallback
	}

	downloadsDir := filepath.Join(homeDir, "Downloads")

	sanitized := SanitizeFilename(handle)
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("quill-transcript-%s-%s.json", sanitized, timestamp)

	return filepath.Join(downloadsDir, filename)
}
