package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrArtifactNotFound is returned when a requested blob does not exist in the
// store.
var ErrArtifactNotFound = errors.New("artifact not found")

// ArtifactStore is a blob store for generated certificate artifacts. Keys are
// slash-separated paths ("qrcodes/CERT-2025-001.png"). Writes overwrite any
// existing blob under the same key; there is no cross-key shared state, so no
// locking is required beyond that per-key overwrite semantics.
type ArtifactStore interface {
	Put(ctx context.Context, key string, body io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// FileStore keeps artifacts on the local filesystem under a base directory.
type FileStore struct {
	baseDir string
	baseURL string
}

// NewFileStore creates the base directory if needed. baseURL is the public
// prefix under which the artifacts are served.
func NewFileStore(baseDir, baseURL string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &FileStore{
		baseDir: baseDir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// path resolves a key under baseDir and rejects any key whose cleaned form
// would land outside it. Keys come from certificate IDs, so traversal
// sequences must stop here regardless of what upstream validation allowed.
func (s *FileStore) path(key string) (string, error) {
	// Keys are slash-separated; a backslash is never a legitimate key byte
	// and would read as a separator on Windows.
	if strings.ContainsRune(key, '\\') {
		return "", fmt.Errorf("artifact key %q escapes the store", key)
	}
	p := filepath.Join(s.baseDir, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.baseDir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("artifact key %q escapes the store", key)
	}
	return p, nil
}

func (s *FileStore) Put(ctx context.Context, key string, body io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	// Write to a sibling temp file and rename so concurrent readers never see
	// a partially written blob.
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return fmt.Errorf("create artifact temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("write artifact %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write artifact %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("store artifact %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, key)
		}
		return nil, fmt.Errorf("open artifact %s: %w", key, err)
	}
	return f, nil
}

func (s *FileStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat artifact %s: %w", key, err)
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete artifact %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) URL(key string) string {
	return s.baseURL + "/" + key
}
