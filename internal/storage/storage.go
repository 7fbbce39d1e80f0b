// Package storage is a rooted file store for the generated site.
package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/tkwsnb/notepress/internal/fileutil"
)

type FileInfo struct {
	Path    string    `json:"path"`
	Hash    string    `json:"hash"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// Storage writes below a single directory. Paths passed to its methods are
// relative to that directory and may not escape it.
type Storage struct {
	mu  sync.RWMutex
	fs  afero.Fs
	dir string
}

func New(fs afero.Fs, dir string) (*Storage, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve dir: %w", err)
	}
	if err := fs.MkdirAll(absDir, 0o755); err != nil {
		return nil, fmt.Errorf("create dir: %w", err)
	}
	return &Storage{fs: fs, dir: absDir}, nil
}

func (s *Storage) Dir() string {
	return s.dir
}

func (s *Storage) Fs() afero.Fs {
	return s.fs
}

// safePath resolves relPath under dir and verifies it doesn't escape.
func (s *Storage) safePath(relPath string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(relPath))
	full := filepath.Join(s.dir, cleaned)
	abs, err := filepath.Abs(full)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	if !strings.HasPrefix(abs, s.dir+string(filepath.Separator)) && abs != s.dir {
		return "", fmt.Errorf("path escapes output directory: %s", relPath)
	}
	return abs, nil
}

func (s *Storage) FullPath(relPath string) (string, error) {
	return s.safePath(relPath)
}

// WriteFile replaces relPath atomically.
func (s *Storage) WriteFile(relPath string, data []byte) error {
	return s.Put(relPath, bytes.NewReader(data))
}

// Put writes r to relPath through a temp file and a rename, so readers never
// see a partial page.
func (s *Storage) Put(relPath string, r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fullPath, err := s.safePath(relPath)
	if err != nil {
		return err
	}

	if err := s.fs.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create parent dirs: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, filepath.Dir(fullPath), ".notepress-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		s.fs.Remove(tmpPath)
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		s.fs.Remove(tmpPath)
		return fmt.Errorf("sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpPath)
		return fmt.Errorf("close file: %w", err)
	}

	if err := s.fs.Rename(tmpPath, fullPath); err != nil {
		s.fs.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

func (s *Storage) ReadFile(relPath string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fullPath, err := s.safePath(relPath)
	if err != nil {
		return nil, err
	}
	return afero.ReadFile(s.fs, fullPath)
}

// List returns every file under the root, sorted by path. When exts are given
// only files with one of those extensions are returned.
func (s *Storage) List(exts ...string) ([]FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[strings.ToLower(e)] = true
	}

	files := []FileInfo{}
	err := afero.Walk(s.fs, s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if len(want) > 0 && !want[fileutil.Ext(path)] {
			return nil
		}

		relPath, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}

		hash, err := fileutil.HashFile(s.fs, path)
		if err != nil {
			return fmt.Errorf("hash %s: %w", relPath, err)
		}

		files = append(files, FileInfo{
			Path:    filepath.ToSlash(relPath),
			Hash:    hash,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, err
}

// Clean removes the contents of the root but not the root itself, which may
// be a mount point.
func (s *Storage) Clean() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read output dir: %w", err)
	}
	for _, e := range entries {
		if err := s.fs.RemoveAll(filepath.Join(s.dir, e.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}
	return s.fs.MkdirAll(s.dir, 0o755)
}
