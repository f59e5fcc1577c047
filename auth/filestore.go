package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/warp/bizops-engine/generic"
)

// =============================================================================
// FILE TOKEN STORE - JSON file, for single-host deployments without SQLite
// =============================================================================

// FileTokenStore keeps tokens in one JSON file keyed by provider. Writes go
// to a temp file and are renamed into place.
type FileTokenStore struct {
	path string
	mu   sync.Mutex
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) LoadToken(_ context.Context, provider string) (generic.Token, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.readLocked()
	if err != nil {
		return generic.Token{}, false, err
	}
	t, ok := tokens[provider]
	return t, ok, nil
}

// Rotate holds the file lock across fn.
func (s *FileTokenStore) Rotate(_ context.Context, provider string, fn func(generic.Token) (generic.Token, error)) (generic.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.readLocked()
	if err != nil {
		return generic.Token{}, err
	}
	next, err := fn(tokens[provider])
	if err != nil {
		return generic.Token{}, err
	}
	next.Provider = provider
	tokens[provider] = next

	if err := s.writeLocked(tokens); err != nil {
		return generic.Token{}, err
	}
	return next, nil
}

func (s *FileTokenStore) readLocked() (map[string]generic.Token, error) {
	tokens := make(map[string]generic.Token)
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return tokens, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return tokens, nil
}

func (s *FileTokenStore) writeLocked(tokens map[string]generic.Token) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
