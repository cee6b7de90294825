package artifacts

import (
	"context"
	"errors"
	"fmt"
)

// ErrArtifactExists is returned by Store.Create when the key is already taken.
var ErrArtifactExists = errors.New("artifact already exists")

// Artifact describes a persisted object.
type Artifact struct {
	Key         string
	URL         string
	ContentType string
	Size        int
}

// Store is an append-only artifact sink. Create must be atomic: it either
// writes a new object under key or fails with ErrArtifactExists, and it
// never replaces an existing object.
type Store interface {
	Create(ctx context.Context, key, contentType string, data []byte) (Artifact, error)
	URL(key string) string
}

// PersistenceError marks a failure to persist a rendered artifact. It is
// distinct from descriptor validation failures.
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	if e == nil {
		return "artifact persistence failed"
	}
	if e.Err == nil {
		return fmt.Sprintf("artifact persistence failed (key=%q)", e.Key)
	}
	return fmt.Sprintf("artifact persistence failed (key=%q): %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsPersistenceError reports whether err carries a *PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
