package store

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jward/emberls/internal/project"
)

// hashWorkers bounds concurrent file reads while hashing.
const hashWorkers = 8

// Capture builds a snapshot of p's current registry. With hashFiles set,
// every symbol file is read and its content hash recorded.
func Capture(ctx context.Context, p *project.Project, hashFiles bool) (Snapshot, error) {
	snap := Snapshot{
		Root:              p.Root(),
		Name:              p.Name(),
		PodPrefix:         p.PodPrefix(),
		ModuleUnification: p.IsModuleUnification(),
		Namespaces:        p.NamespacesEnabled(),
		IndexedAt:         time.Now(),
	}
	for _, a := range p.Addons() {
		snap.Addons = append(snap.Addons, Addon{Name: a.Name, Root: a.Root, Script: a.Script})
	}

	entries := p.Registry().Entries()
	snap.Symbols = make([]Symbol, len(entries))
	for i, e := range entries {
		m, ok := p.MatchPathToType(e.Path)
		snap.Symbols[i] = Symbol{Type: string(e.Type), Name: e.Name, Path: e.Path, Test: ok && m.Test}
	}
	if !hashFiles {
		return snap, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(hashWorkers)
	for i := range snap.Symbols {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := p.FS().ReadFile(snap.Symbols[i].Path)
			if err != nil {
				return fmt.Errorf("store: hash %s: %w", snap.Symbols[i].Path, err)
			}
			snap.Symbols[i].Hash = ContentHash(data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
