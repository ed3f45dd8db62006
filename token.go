package apiclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// tokenFileName is the single durable key holding the bearer string.
const tokenFileName = "auth_token"

// TokenStorage persists the bearer token across process restarts. Load
// returns ErrNoToken when nothing is stored.
type TokenStorage interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// TokenStore owns the in-memory token cell and mirrors every change to its
// durable storage. Safe for concurrent use.
type TokenStore struct {
	mu      sync.RWMutex
	token   string
	present bool
	storage TokenStorage
}

// NewTokenStore creates a store backed by storage. A nil storage falls back
// to in-memory only, which makes the durable mirror a no-op.
func NewTokenStore(storage TokenStorage) *TokenStore {
	if storage == nil {
		storage = NewMemoryTokenStorage()
	}
	return &TokenStore{storage: storage}
}

// Load populates the in-memory cell from durable storage. A missing token is
// not an error; the store simply stays empty.
func (ts *TokenStore) Load(ctx context.Context) error {
	token, err := ts.storage.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return nil
		}
		return fmt.Errorf("load token: %w", err)
	}

	ts.mu.Lock()
	ts.token = token
	ts.present = token != ""
	ts.mu.Unlock()
	return nil
}

// Save updates the in-memory cell and writes through to durable storage.
// The in-memory value is set even when the durable write fails, so the
// session keeps working and only persistence is degraded.
func (ts *TokenStore) Save(ctx context.Context, token string) error {
	ts.mu.Lock()
	ts.token = token
	ts.present = token != ""
	ts.mu.Unlock()

	if err := ts.storage.Save(ctx, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Clear removes the token from memory and durable storage.
func (ts *TokenStore) Clear(ctx context.Context) error {
	ts.mu.Lock()
	ts.token = ""
	ts.present = false
	ts.mu.Unlock()

	if err := ts.storage.Clear(ctx); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

// Token returns the current bearer value and whether one is present.
func (ts *TokenStore) Token() (string, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.token, ts.present
}

// IsPresent reports whether a token is currently held in memory.
func (ts *TokenStore) IsPresent() bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.present
}

// MemoryTokenStorage keeps the token in process memory only. This is the
// default storage and the one tests use.
type MemoryTokenStorage struct {
	mu      sync.Mutex
	token   string
	present bool
}

// NewMemoryTokenStorage returns an empty in-memory storage.
func NewMemoryTokenStorage() *MemoryTokenStorage {
	return &MemoryTokenStorage{}
}

// Load implements TokenStorage.
func (s *MemoryTokenStorage) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.present {
		return "", ErrNoToken
	}
	return s.token, nil
}

// Save implements TokenStorage.
func (s *MemoryTokenStorage) Save(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.present = true
	return nil
}

// Clear implements TokenStorage.
func (s *MemoryTokenStorage) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.present = false
	return nil
}

// FileTokenStorage persists the token as a 0600 file under a per-user
// directory, the same way CLI tools keep their session credentials.
type FileTokenStorage struct {
	path string
}

// NewFileTokenStorage stores the token at path. An empty path picks
// <user config dir>/onward-dominicans/auth_token.
func NewFileTokenStorage(path string) (*FileTokenStorage, error) {
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve config dir: %w", err)
		}
		path = filepath.Join(dir, "onward-dominicans", tokenFileName)
	}
	return &FileTokenStorage{path: path}, nil
}

// Path returns the file the token is stored in.
func (s *FileTokenStorage) Path() string {
	return s.path
}

// Load implements TokenStorage.
func (s *FileTokenStorage) Load(ctx context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Save implements TokenStorage.
func (s *FileTokenStorage) Save(ctx context.Context, token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token), 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// Clear implements TokenStorage.
func (s *FileTokenStorage) Clear(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}
