package namespace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jenkins-mcp-integ/pkg/api"
)

// IsGone reports whether err means the queried folder no longer exists.
func IsGone(err error) bool {
	return errors.Is(err, api.ErrNotFound)
}

// Child is one immediate entry of a folder as reported by the CI server.
type Child struct {
	Name   string
	Folder bool
	URL    string
}

// Lister is the subset of CI functionality the fetcher depends on.
type Lister interface {
	// ListChildren returns the immediate children of folder. The empty
	// path is the repository root. Must return api.ErrNotFound (wrapped)
	// when folder does not exist and api.ErrUpstreamUnavailable on
	// transport failure.
	ListChildren(ctx context.Context, folder []string) ([]Child, error)
}

// expandConcurrency bounds parallel subfolder listings during a recursive
// fetch. The result is a set union, so completion order does not matter.
const expandConcurrency = 8

// Fetcher builds namespace snapshots from a live CI server.
type Fetcher struct {
	lister Lister
	log    *slog.Logger
}

// NewFetcher creates a Fetcher. A nil logger falls back to slog.Default.
func NewFetcher(lister Lister, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{lister: lister, log: logger}
}

// Fetch retrieves the current tree under root. With recursive=false only
// direct children are listed; with recursive=true subfolders are expanded
// level by level until the whole subtree is covered. The call is read-only
// and the returned snapshot is owned by the caller.
func (f *Fetcher) Fetch(ctx context.Context, root []string, recursive bool) (*Snapshot, error) {
	children, err := f.lister.ListChildren(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", Join(root), err)
	}

	var (
		mu      sync.Mutex
		paths   [][]string
		folders [][]string
	)
	for _, c := range children {
		p := append(append([]string(nil), root...), c.Name)
		paths = append(paths, p)
		if c.Folder {
			folders = append(folders, p)
		}
	}

	for recursive && len(folders) > 0 {
		level := folders
		folders = nil

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(expandConcurrency)
		for _, folder := range level {
			folder := folder
			g.Go(func() error {
				children, err := f.lister.ListChildren(gctx, folder)
				if err != nil {
					// A folder listed a moment ago can vanish before we
					// expand it; skip it rather than failing the whole
					// snapshot.
					if IsGone(err) {
						f.log.Debug("folder vanished during expansion", slog.String("folder", Join(folder)))
						return nil
					}
					return fmt.Errorf("expand %q: %w", Join(folder), err)
				}
				mu.Lock()
				defer mu.Unlock()
				for _, c := range children {
					p := append(append([]string(nil), folder...), c.Name)
					paths = append(paths, p)
					if c.Folder {
						folders = append(folders, p)
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		// Keep the next level deterministic regardless of goroutine
		// completion order.
		sort.Slice(folders, func(i, j int) bool { return Join(folders[i]) < Join(folders[j]) })
	}

	snap := NewSnapshot(root, recursive, paths)
	f.log.Debug("namespace snapshot fetched",
		slog.String("root", Join(root)),
		slog.Bool("recursive", recursive),
		slog.Int("entries", snap.Len()),
	)
	return snap, nil
}
