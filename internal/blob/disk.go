package blob

import (
	"fmt"
	"os"
	"path/filepath"
)

// DiskStore implements Store on the local filesystem, one file per key.
type DiskStore struct {
	root string
}

// NewDiskStore creates the root directory if needed and returns a DiskStore.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &DiskStore{root: root}, nil
}

// path maps a key to a file path. Keys are flattened to their base name so a
// crafted key cannot escape the root directory.
func (s *DiskStore) path(key string) string {
	return filepath.Join(s.root, filepath.Base(key))
}

// Write stores data under key, replacing any existing content.
func (s *DiskStore) Write(key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("blob key cannot be empty")
	}
	if err := os.WriteFile(s.path(key), data, 0644); err != nil {
		return fmt.Errorf("write blob %s: %w", key, err)
	}
	return nil
}

// Read returns the content stored under key.
func (s *DiskStore) Read(key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", key, err)
	}
	return data, nil
}

// Delete removes the content stored under key. Deleting a missing key is not an error.
func (s *DiskStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	return nil
}

// Exists reports whether key has stored content.
func (s *DiskStore) Exists(key string) bool {
	_, err := os.Stat(s.path(key))
	return err == nil
}
