package buffer

import (
	"fmt"
	"os"
	"path/filepath"
)

// SnapshotTarget is a byte-oriented durable target for buffer snapshots.
// Load returns nil data (no error) when no snapshot exists yet.
type SnapshotTarget interface {
	Save(data []byte) error
	Load() ([]byte, error)
}

// FileSnapshot persists snapshots to a single file, written atomically
// via a temp file rename so a crash mid-write never corrupts the snapshot.
type FileSnapshot struct {
	Path string
}

// NewFileSnapshot creates a file-backed snapshot target at path.
func NewFileSnapshot(path string) *FileSnapshot {
	return &FileSnapshot{Path: path}
}

func (f *FileSnapshot) Save(data []byte) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (f *FileSnapshot) Load() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}
