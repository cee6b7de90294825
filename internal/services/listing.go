package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileLister returns the names of the files uploaded for a scope.
type FileLister interface {
	List(ctx context.Context, scope string) ([]string, error)
}

// DirLister lists regular files in <root>/<scope>. A missing directory is
// an empty listing.
type DirLister struct {
	root string
}

func NewDirLister(root string) *DirLister {
	return &DirLister{root: root}
}

func (l *DirLister) dirFor(scope string) (string, error) {
	scope = strings.Trim(strings.TrimSpace(scope), "/")
	if scope == "" {
		return l.root, nil
	}
	clean := filepath.Clean(filepath.FromSlash(scope))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid listing scope %q", scope)
	}
	return filepath.Join(l.root, clean), nil
}

func (l *DirLister) List(ctx context.Context, scope string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := l.dirFor(scope)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// ListerFunc adapts a function, such as a bucket's ListNames, to FileLister.
type ListerFunc func(ctx context.Context, scope string) ([]string, error)

func (f ListerFunc) List(ctx context.Context, scope string) ([]string, error) { return f(ctx, scope) }

// listWithTimeout bounds a listing call. On error or timeout the listing
// is empty and the cause is returned for logging.
func listWithTimeout(ctx context.Context, lister FileLister, scope string, timeout time.Duration) ([]string, error) {
	if lister == nil {
		return []string{}, nil
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	type result struct {
		names []string
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		names, err := lister.List(ctx, scope)
		ch <- result{names, err}
	}()
	select {
	case r := <-ch:
		if r.err != nil {
			return []string{}, r.err
		}
		return r.names, nil
	case <-ctx.Done():
		return []string{}, ctx.Err()
	}
}
