package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps artifacts as files under a directory.
type LocalStore struct {
	dir       string
	urlPrefix string
}

func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("local artifact store: dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local artifact store: create dir: %w", err)
	}
	return &LocalStore{dir: dir, urlPrefix: strings.TrimRight(strings.TrimSpace(urlPrefix), "/")}, nil
}

func (s *LocalStore) Dir() string { return s.dir }

var syncFile = func(f *os.File) error { return f.Sync() }

// Create writes the artifact with create-or-fail semantics. ctx is checked
// before the open and again after the sync; a write or fsync already in
// progress is not interrupted, but a deadline that passes during it still
// fails the call.
func (s *LocalStore) Create(ctx context.Context, key, contentType string, data []byte) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	p, err := s.pathFor(key)
	if err != nil {
		return Artifact{}, err
	}
	// O_EXCL gives us create-or-fail without any locking.
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Artifact{}, ErrArtifactExists
		}
		return Artifact{}, fmt.Errorf("open %s: %w", key, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return Artifact{}, fmt.Errorf("write %s: %w", key, err)
	}
	if err := syncFile(f); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return Artifact{}, fmt.Errorf("sync %s: %w", key, err)
	}
	if err := ctx.Err(); err != nil {
		// the file is complete; a retry will reuse it via ErrArtifactExists
		_ = f.Close()
		return Artifact{}, err
	}
	if err := f.Close(); err != nil {
		return Artifact{}, fmt.Errorf("close %s: %w", key, err)
	}
	return Artifact{Key: key, URL: s.URL(key), ContentType: contentType, Size: len(data)}, nil
}

func (s *LocalStore) URL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if s.urlPrefix == "" {
		return key
	}
	return s.urlPrefix + "/" + key
}

func (s *LocalStore) pathFor(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.Contains(key, "..") || strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("invalid artifact key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}
