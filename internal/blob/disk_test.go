package blob

import (
	"bytes"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(filepath.Join(t.TempDir(), "blobs"))
	if err != nil {
		t.Fatalf("NewDiskStore() error = %v", err)
	}
	return store
}

func TestWriteReadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	data := []byte("file contents")
	if err := store.Write("abc-123.pdf", data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err := store.Read("abc-123.pdf")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Read() = %q, want %q", got, data)
	}
}

func TestExists(t *testing.T) {
	store := newTestStore(t)
	if store.Exists("nothing.txt") {
		t.Error("Exists() = true for missing key")
	}
	_ = store.Write("a.txt", []byte("x"))
	if !store.Exists("a.txt") {
		t.Error("Exists() = false for written key")
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	_ = store.Write("a.txt", []byte("x"))
	if err := store.Delete("a.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if store.Exists("a.txt") {
		t.Error("key still exists after Delete()")
	}
}

func TestDeleteMissingKey(t *testing.T) {
	store := newTestStore(t)
	if err := store.Delete("never-written.txt"); err != nil {
		t.Errorf("Delete() of missing key error = %v, want nil", err)
	}
}

func TestKeyIsFlattened(t *testing.T) {
	store := newTestStore(t)
	if err := store.Write("../escape.txt", []byte("x")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	// The path component is stripped, so the flattened key must resolve.
	if !store.Exists("escape.txt") {
		t.Error("path-traversal key was not flattened to its base name")
	}
}
