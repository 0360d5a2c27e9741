// Package runtime runs addon provider scripts. A provider script is Risor
// source named in an addon's package.json; it runs once per completion or
// definition request and extends the results through host functions.
package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/emberls/internal/vfs"
)

// Runtime embeds a Risor VM and provides tree-sitter and project host
// functions to provider scripts.
type Runtime struct {
	logger *log.Logger
	fsys   fs.FS
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithFS loads scripts and their imports from fsys instead of the project
// filesystem. Script paths are taken relative to the root of fsys.
func WithFS(fsys fs.FS) Option {
	return func(r *Runtime) { r.fsys = fsys }
}

// WithLogger sets the logger scripts write to through the log global.
func WithLogger(l *log.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// New creates a Runtime.
func New(opts ...Option) *Runtime {
	r := &Runtime{logger: log.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads the script at path from fsys and executes it with the
// standard globals plus extra. Imports resolve next to the script.
func (r *Runtime) RunScript(ctx context.Context, fsys vfs.FS, path string, extra map[string]any) error {
	src, err := r.LoadScript(fsys, path)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, path, filepath.Dir(path), extra)
}

// RunSource executes Risor source directly with the standard globals plus
// extra.
func (r *Runtime) RunSource(ctx context.Context, source string, extra map[string]any) error {
	return r.eval(ctx, source, "<inline>", "", extra)
}

func (r *Runtime) eval(ctx context.Context, source, label, dir string, extra map[string]any) error {
	globals := r.buildGlobals(extra)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := r.buildImporter(globals, dir); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter resolves Risor imports from the configured fs.FS, or from
// dir on disk. Returns nil when neither is available.
func (r *Runtime) buildImporter(globals map[string]any, dir string) importer.Importer {
	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: names,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if dir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: names,
			SourceDir:   dir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a script. With an fs.FS configured the path is read
// from it, minus any leading separator; otherwise from fsys.
func (r *Runtime) LoadScript(fsys vfs.FS, path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", path, err)
	}
	return string(data), nil
}

// buildGlobals constructs the globals every script sees. Parsed trees live
// only as long as one run.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	trees := newTreeTable()
	globals := map[string]any{
		"parse_src":     trees.parseSrc(),
		"node_text":     trees.nodeText(),
		"query":         trees.query(),
		"node_child":    nodeChild(),
		"template_info": templateInfo(),
		"class_members": classMembers(),
		"log":           mustProxy(&scriptLog{logger: r.logger.WithPrefix("script")}),
	}
	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
