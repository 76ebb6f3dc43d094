package session

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"lecture-rag/internal/models"
)

type snapshot struct {
	ID       string                    `json:"id"`
	Settings Settings                  `json:"settings"`
	Turns    []models.ConversationTurn `json:"turns"`
}

// Save writes the conversation and settings as JSON.
func (s *Session) Save(w io.Writer) error {
	s.mu.Lock()
	snap := snapshot{ID: s.id, Settings: s.settings, Turns: append([]models.ConversationTurn(nil), s.turns...)}
	s.mu.Unlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return nil
}

// Load restores a session saved with Save. The restored session starts Idle.
func Load(r io.Reader, pipeline Pipeline) (*Session, error) {
	var snap snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	s := New(pipeline)
	if snap.ID != "" {
		s.id = snap.ID
	}
	s.settings = snap.Settings
	if len(snap.Turns) > 0 {
		s.turns = snap.Turns
	}
	return s, nil
}

func (s *Session) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create session file: %w", err)
	}
	defer f.Close()
	return s.Save(f)
}

func LoadFile(path string, pipeline Pipeline) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open session file: %w", err)
	}
	defer f.Close()
	return Load(f, pipeline)
}
