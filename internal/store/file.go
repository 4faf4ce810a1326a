package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// FileBackend keeps each document as <dir>/<name>.json.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) path(name string) string { return filepath.Join(b.dir, name+".json") }

func (b *FileBackend) Load(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(b.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	return data, err
}

type fileSnapshot struct {
	data    []byte
	existed bool
}

// Commit writes every document to a temp file first, then renames them into
// place. If a rename fails the documents already replaced are put back.
func (b *FileBackend) Commit(_ context.Context, docs map[string][]byte) error {
	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)

	temps := make(map[string]string, len(names))
	defer func() {
		for _, tmp := range temps {
			_ = os.Remove(tmp)
		}
	}()
	prev := make(map[string]fileSnapshot, len(names))
	for _, name := range names {
		tmp, err := b.writeTemp(name, docs[name])
		if err != nil {
			return err
		}
		temps[name] = tmp

		data, err := os.ReadFile(b.path(name))
		switch {
		case err == nil:
			prev[name] = fileSnapshot{data: data, existed: true}
		case errors.Is(err, fs.ErrNotExist):
			prev[name] = fileSnapshot{}
		default:
			// unreadable old content is not worth restoring
			prev[name] = fileSnapshot{existed: true}
		}
	}

	for i, name := range names {
		if err := os.Rename(temps[name], b.path(name)); err != nil {
			b.restore(names[:i], prev)
			return fmt.Errorf("replace %s: %w", name, err)
		}
		delete(temps, name)
	}
	return nil
}

func (b *FileBackend) restore(names []string, prev map[string]fileSnapshot) {
	for _, name := range names {
		snap := prev[name]
		if !snap.existed {
			_ = os.Remove(b.path(name))
			continue
		}
		if snap.data == nil {
			continue
		}
		if tmp, err := b.writeTemp(name, snap.data); err == nil {
			if err := os.Rename(tmp, b.path(name)); err != nil {
				_ = os.Remove(tmp)
			}
		}
	}
}

func (b *FileBackend) writeTemp(name string, data []byte) (string, error) {
	f, err := os.CreateTemp(b.dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("stage %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("sync %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("stage %s: %w", name, err)
	}
	return f.Name(), nil
}
