package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := NewMemoryStore()

	if _, _, ok, err := s.Load(); ok || err != nil {
		t.Fatalf("Load on empty store = %v, %v", ok, err)
	}

	if err := s.Save("token-123", []byte(`{"id":7}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	credential, principal, ok, err := s.Load()
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if credential != "token-123" || string(principal) != `{"id":7}` {
		t.Errorf("loaded %q / %s", credential, principal)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, _, ok, _ := s.Load(); ok {
		t.Error("pair survived Clear")
	}
	// Clear is idempotent.
	if err := s.Clear(); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if _, _, ok, err := s.Load(); ok || err != nil {
		t.Fatalf("Load before Save = %v, %v", ok, err)
	}

	if err := s.Save("token-abc", []byte(`{"id":3,"email":"a@b.c","role":"hr"}`)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	// A second store over the same path sees the pair (simulated reboot).
	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	credential, principal, ok, err := reopened.Load()
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if credential != "token-abc" {
		t.Errorf("credential = %q", credential)
	}
	if string(principal) != `{"id":3,"email":"a@b.c","role":"hr"}` {
		t.Errorf("principal = %s", principal)
	}

	if err := reopened.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file survived Clear")
	}
	if err := reopened.Clear(); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}

func TestFileStore_CorruptPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := os.WriteFile(path, []byte("{half a payload"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, _, _, err := s.Load(); err == nil {
		t.Error("Load of corrupt payload succeeded")
	}
}

func TestNewFileStore_EmptyPath(t *testing.T) {
	if _, err := NewFileStore(""); err == nil {
		t.Error("NewFileStore with empty path succeeded")
	}
}
