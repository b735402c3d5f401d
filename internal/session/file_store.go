package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"herald/internal/domain"
	"herald/internal/herr"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileStore persists one JSON state blob per sender under a root directory.
// A process-wide mutex serializes read-modify-write cycles; the version
// check still guards against stale writers that loaded before a concurrent
// turn committed.
type FileStore struct {
	mu   sync.Mutex
	root string
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("file store requires a root directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) path(sender string) string {
	name := unsafeFilenameChars.ReplaceAllString(sender, "_")
	return filepath.Join(s.root, name+".json")
}

func (s *FileStore) Get(_ context.Context, sender string) (*domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(sender)
}

func (s *FileStore) readLocked(sender string) (*domain.SessionState, error) {
	raw, err := os.ReadFile(s.path(sender))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &herr.SessionLoadError{Sender: sender, Err: err}
	}
	var state domain.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, &herr.SessionLoadError{Sender: sender, Err: err}
	}
	return &state, nil
}

func (s *FileStore) Upsert(_ context.Context, sender string, state *domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.readLocked(sender)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if current != nil && current.Version != state.Version {
		return ErrVersionConflict
	}

	saved := state.Clone()
	saved.Version++
	raw, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sender, err)
	}

	// Write-then-rename keeps the blob readable if the process dies mid-save.
	tmp := s.path(sender) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", sender, err)
	}
	if err := os.Rename(tmp, s.path(sender)); err != nil {
		return fmt.Errorf("commit session %s: %w", sender, err)
	}
	return nil
}
