package project

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jward/emberls/internal/cache"
)

const symbolGlob = "**/*.{js,ts,hbs}"

// walk is one registry-populating directory listing.
type walk struct {
	name  string
	root  string
	globs []string
}

func (p *Project) walks() []walk {
	app := []string{"app/" + symbolGlob}
	if p.muLayout {
		app = append(app, "src/"+symbolGlob)
	}
	walks := []walk{
		{name: "tests", root: p.root, globs: []string{"tests/**/*-test.{js,ts}"}},
		{name: "app", root: p.root, globs: app},
	}
	for _, a := range p.addons {
		walks = append(walks, walk{name: "addon " + a.Name, root: a.Root, globs: []string{"addon/" + symbolGlob, "app/" + symbolGlob}})
	}
	return walks
}

// populate walks the tests, app and addon trees concurrently and adds every
// matching file to the registry.
func (p *Project) populate(ctx context.Context) error {
	var (
		mu     sync.Mutex
		errs   []error
		files  int
		walked = p.walks()
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, w := range walked {
		g.Go(func() error {
			paths, err := p.list(ctx, w.root, w.name, w.globs...)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", w.name, err))
				mu.Unlock()
				return nil
			}
			n := 0
			for _, path := range paths {
				if m, ok := p.matcher.Match(filepath.Clean(path)); ok {
					p.registry.Add(m.Type, m.Name, path)
					n++
				}
			}
			mu.Lock()
			files += n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("project: populate %s: %w", p.root, err)
	}
	if len(errs) > 0 {
		p.logger.Warn("registry walk had errors", "root", p.root, "count", len(errs))
		for _, err := range errs {
			p.logger.Debug("walk error", "err", err)
		}
	}
	p.logger.Debug("registry populated", "root", p.root, "files", files, "walks", len(walked))
	return nil
}

// list returns the files under dir matching globs through the listings
// memo. Every key lives under the host root's prefix so TrackChange drops
// the listings of addon roots too.
func (p *Project) list(ctx context.Context, dir, key string, globs ...string) ([]string, error) {
	return p.Listings().Get(cache.RootKey(p.root)+dir+"\x00"+key, func() ([]string, error) {
		return p.fs.ListFiles(ctx, dir, globs...)
	})
}

// ListItems returns the files under every project root matching globs,
// memoized per root and key until a file is created or deleted.
func (p *Project) ListItems(ctx context.Context, key string, globs ...string) ([]string, error) {
	var out []string
	for _, root := range p.Roots() {
		paths, err := p.list(ctx, root, key, globs...)
		if err != nil {
			return out, fmt.Errorf("project: list %s in %s: %w", key, root, err)
		}
		out = append(out, paths...)
	}
	return out, nil
}
