package project

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jward/emberls/internal/ast"
)

// Document is an open editor document.
type Document struct {
	URI  string `json:"uri"`
	Text string `json:"text"`
}

// Severity follows editor diagnostic severities.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

// Diagnostic is one linter finding.
type Diagnostic struct {
	Range    ast.Range `json:"range"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Source   string    `json:"source,omitempty"`
}

type (
	// Linter reports diagnostics for a document.
	Linter func(ctx context.Context, doc Document) ([]Diagnostic, error)
	// Executor runs a named project command.
	Executor func(ctx context.Context, p *Project, args []any) (any, error)
)

// ErrUnknownCommand is returned by Execute for unregistered commands.
var ErrUnknownCommand = errors.New("project: unknown command")

// AddLinter registers a linter.
func (p *Project) AddLinter(l Linter) {
	p.lock.Lock()
	p.linters = append(p.linters, l)
	p.lock.Unlock()
}

// Lint runs every linter. Linter errors are logged and skipped so one
// failing linter does not hide the others' results.
func (p *Project) Lint(ctx context.Context, doc Document) []Diagnostic {
	p.lock.Lock()
	linters := append([]Linter(nil), p.linters...)
	p.lock.Unlock()

	var out []Diagnostic
	for _, l := range linters {
		diags, err := l(ctx, doc)
		if err != nil {
			p.logger.Error("linter failed", "uri", doc.URI, "err", err)
			continue
		}
		out = append(out, diags...)
	}
	return out
}

// AddCommandExecutor registers an executor under key, replacing any
// previous one.
func (p *Project) AddCommandExecutor(key string, fn Executor) {
	p.lock.Lock()
	p.executors[key] = fn
	p.lock.Unlock()
}

// Commands returns the registered command keys.
func (p *Project) Commands() []string {
	p.lock.Lock()
	defer p.lock.Unlock()
	keys := make([]string, 0, len(p.executors))
	for k := range p.executors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Execute runs the executor registered under key.
func (p *Project) Execute(ctx context.Context, key string, args []any) (any, error) {
	p.lock.Lock()
	fn, ok := p.executors[key]
	p.lock.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, key)
	}
	return fn(ctx, p, args)
}
