// Package creds persists the client's token pair between runs and hands it
// to the request layer without touching the disk on the hot path.
package creds

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"opsboard/internal/logging"
)

// Pair is an access/refresh token pair. Both tokens travel together: a pair
// missing either half is treated as logged out.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Valid reports whether both halves of the pair are present.
func (p Pair) Valid() bool {
	return p.AccessToken != "" && p.RefreshToken != ""
}

// Store is the credential surface used by the request layer.
type Store interface {
	// Get returns the current pair from memory. It never performs I/O.
	Get() Pair
	// Set replaces the stored pair and persists it. Setting a pair with
	// either half missing is equivalent to Clear.
	Set(p Pair) error
	// Clear drops the pair from memory and removes the persisted copy.
	Clear() error
	// IsAuthenticated reports whether a complete pair is held.
	IsAuthenticated() bool
}

// FileStore keeps the pair in memory and mirrors it to a JSON file.
// The file is read once at construction; a missing or malformed file means
// the user is logged out, never an error.
type FileStore struct {
	path   string
	logger logging.Logger

	mu   sync.RWMutex
	pair Pair
}

var _ Store = (*FileStore)(nil)

// NewFileStore loads any previously persisted pair from path.
func NewFileStore(path string, logger logging.Logger) *FileStore {
	s := &FileStore{path: path, logger: logger}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn(context.Background(), "could not read credentials file, starting logged out", "path", path, "error", err)
		}
		return s
	}

	var p Pair
	if err := json.Unmarshal(data, &p); err != nil || !p.Valid() {
		logger.Warn(context.Background(), "credentials file is malformed, starting logged out", "path", path)
		return s
	}

	s.pair = p
	return s
}

func (s *FileStore) Get() Pair {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair
}

func (s *FileStore) IsAuthenticated() bool {
	return s.Get().Valid()
}

func (s *FileStore) Set(p Pair) error {
	if !p.Valid() {
		return s.Clear()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = p

	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = Pair{}

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
