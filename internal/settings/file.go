package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one JSON file per key inside dir.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("settings dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create settings dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Load(_ context.Context, key string) (Snapshot, error) {
	raw, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read settings: %w", err)
	}
	return Decode(raw)
}

func (s *FileStore) Save(_ context.Context, key string, snap Snapshot) error {
	raw, err := Encode(snap)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp.Name(), s.path(key))
}

func (s *FileStore) Reset(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reset settings: %w", err)
	}
	return nil
}

var unsafeKeyChars = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, unsafeKeyChars.Replace(key)+".json")
}
