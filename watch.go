package emberls

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jward/emberls/internal/project"
	"github.com/jward/emberls/internal/watch"
)

// Watch feeds file changes under the project rooted at root into
// TrackChange until ctx is done. A changed package.json reloads the
// project. applied, if set, runs after each batch with the project the
// batch was applied to.
func (s *Server) Watch(ctx context.Context, root string, applied func(context.Context, *Project)) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("emberls: %w", err)
	}
	if _, ok := s.projects.Get(root); !ok {
		return fmt.Errorf("%w at %s", project.ErrNoProject, root)
	}
	manifest := filepath.Join(root, "package.json")

	w, err := watch.New(watch.Config{
		Root:   root,
		Logger: s.logger.WithPrefix("watch"),
		OnChange: func(ctx context.Context, events []watch.Event) {
			for _, e := range events {
				if e.Path == manifest && e.Kind != Deleted {
					s.logger.Info("package.json changed, reloading", "root", root)
					p, err := s.AddProject(ctx, root)
					if err != nil {
						s.logger.Error("reload failed", "root", root, "err", err)
						return
					}
					if applied != nil {
						applied(ctx, p)
					}
					return
				}
			}
			p, ok := s.projects.Get(root)
			if !ok {
				return
			}
			for _, e := range events {
				p.TrackChange(e.Path, e.Kind)
			}
			if applied != nil {
				applied(ctx, p)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("emberls: %w", err)
	}
	return w.Run(ctx)
}
