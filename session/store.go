package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists exactly two durable values, the opaque credential and the
// serialized principal record, always written and cleared together as a
// unit.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Atomicity: a reader never observes a credential without its principal or
//   vice versa.
type Store interface {
	// Save persists the credential/principal pair.
	Save(credential string, principal []byte) error

	// Load reads the pair. ok is false when nothing is persisted.
	Load() (credential string, principal []byte, ok bool, err error)

	// Clear removes the pair. Idempotent.
	Clear() error
}

// MemoryStore keeps the pair in memory. Used in tests and ephemeral clients.
type MemoryStore struct {
	mu         sync.Mutex
	credential string
	principal  []byte
	present    bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save persists the pair in memory.
func (s *MemoryStore) Save(credential string, principal []byte) error {
	s.mu.Lock()
	s.credential = credential
	s.principal = append([]byte(nil), principal...)
	s.present = true
	s.mu.Unlock()
	return nil
}

// Load reads the pair.
func (s *MemoryStore) Load() (string, []byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.present {
		return "", nil, false, nil
	}
	return s.credential, append([]byte(nil), s.principal...), true, nil
}

// Clear removes the pair.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	s.credential = ""
	s.principal = nil
	s.present = false
	s.mu.Unlock()
	return nil
}

// FileStore persists the pair as a single JSON file with 0600 permissions.
// The write is atomic: a temp file in the same directory is renamed over the
// target, so a crash never leaves a half-written pair.
type FileStore struct {
	mu   sync.Mutex
	path string
}

type filePayload struct {
	Credential string          `json:"credential"`
	Principal  json.RawMessage `json:"principal"`
}

// NewFileStore creates a file store at path. The parent directory is created
// if missing.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("session: store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("session: create store dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Save persists the pair to disk.
func (s *FileStore) Save(credential string, principal []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(filePayload{
		Credential: credential,
		Principal:  json.RawMessage(principal),
	})
	if err != nil {
		return fmt.Errorf("session: encode store payload: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("session: write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("session: replace store: %w", err)
	}
	return nil
}

// Load reads the pair from disk.
func (s *FileStore) Load() (string, []byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, fmt.Errorf("session: read store: %w", err)
	}

	var payload filePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", nil, false, fmt.Errorf("session: decode store payload: %w", err)
	}
	return payload.Credential, []byte(payload.Principal), true, nil
}

// Clear removes the persisted pair.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("session: clear store: %w", err)
	}
	return nil
}

// Ensure implementations satisfy Store
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
)
