package resolve

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jward/emberls/internal/layout"
	"github.com/jward/emberls/internal/project"
	"github.com/jward/emberls/internal/registry"
	"github.com/jward/emberls/internal/vfs"
)

// symbolQuery selects the candidate files of one symbol.
type symbolQuery struct {
	typ       layout.SymbolType
	name      string
	addons    bool   // include Addon convention candidates
	templates bool   // template files instead of scripts
	addon     string // restrict to the addon with this short name
}

// conventions returns the host conventions of p.
func conventions(p *project.Project) []layout.Convention {
	if p.IsModuleUnification() {
		return []layout.Convention{layout.ModuleUnification}
	}
	return []layout.Convention{layout.Classic, layout.Pod}
}

func resolverFor(p *project.Project, only string) *layout.Resolver {
	return &layout.Resolver{Addons: layout.AddonLayout{Roots: func(string) []layout.AddonInfo {
		return addonInfos(p, only)
	}}}
}

// addonInfos returns p's addons, or the single addon whose short name is
// only.
func addonInfos(p *project.Project, only string) []layout.AddonInfo {
	infos := p.AddonInfos()
	if only == "" {
		return infos
	}
	var out []layout.AddonInfo
	for _, a := range infos {
		if addonShortName(a.Name) == only {
			out = append(out, a)
		}
	}
	return out
}

// candidatePaths generates every file that could define the symbol, then
// appends the registry's known paths. Test files are never candidates.
// Conventions with no layout for the symbol type are skipped.
func candidatePaths(p *project.Project, q symbolQuery) []string {
	r := resolverFor(p, q.addon)
	convs := conventions(p)
	if q.addon != "" {
		convs = nil
	}
	if q.addons || q.addon != "" {
		convs = append(convs, layout.Addon)
	}

	var out []string
	for _, conv := range convs {
		gen := r.CandidatePaths
		if q.templates {
			gen = r.TemplatePaths
		}
		paths, err := gen(conv, p.Root(), q.typ, q.name, p.PodPrefix())
		if err != nil {
			if !errors.Is(err, layout.ErrUnsupported) {
				p.Logger().Warn("candidate generation failed", "type", q.typ, "name", q.name, "err", err)
			}
			continue
		}
		out = append(out, paths...)
	}

	roots := addonRootsFor(p, q.addon)
	for _, path := range p.Registry().PathsFor(q.typ, q.name) {
		if layout.IsTemplate(path) != q.templates {
			continue
		}
		if m, ok := p.MatchPathToType(path); ok && m.Test {
			continue
		}
		if roots != nil && !underAny(path, roots) {
			continue
		}
		out = append(out, path)
	}
	return uniquePaths(out)
}

func addonRootsFor(p *project.Project, only string) []string {
	if only == "" {
		return nil
	}
	roots := []string{}
	for _, a := range addonInfos(p, only) {
		roots = append(roots, a.Root)
	}
	return roots
}

func underAny(path string, roots []string) bool {
	for _, r := range roots {
		if registry.Under(path, r) {
			return true
		}
	}
	return false
}

// existing returns the paths that exist, in input order. Checks run
// concurrently up to maxReads at a time; checks still pending at the read
// timeout count as missing.
func (e *Engine) existing(ctx context.Context, fsys vfs.FS, paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, e.readTimeout)
	defer cancel()

	found := make([]bool, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxReads)
	for i, path := range paths {
		g.Go(func() error {
			ok, err := abandonOnDone(gctx, func() (bool, error) {
				return fsys.Exists(path), nil
			})
			found[i] = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Warn("existence checks cut short", "paths", len(paths), "err", err)
	}

	var out []string
	for i, ok := range found {
		if ok {
			out = append(out, paths[i])
		}
	}
	return out
}

// readFile reads path, giving up at the read timeout.
func (e *Engine) readFile(ctx context.Context, fsys vfs.FS, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.readTimeout)
	defer cancel()
	data, err := abandonOnDone(ctx, func() ([]byte, error) {
		return fsys.ReadFile(path)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve: read %s: %w", path, err)
	}
	return data, nil
}

// abandonOnDone runs fn on its own goroutine and stops waiting for it once
// ctx is done. fn keeps running to completion in the background.
func abandonOnDone[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func locations(paths []string) []Location {
	out := make([]Location, len(paths))
	for i, p := range paths {
		out[i] = fileStart(p)
	}
	return out
}
