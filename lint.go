package emberls

import (
	"context"
	"errors"

	"github.com/jward/emberls/internal/project"
	"github.com/jward/emberls/internal/resolve"
	"github.com/jward/emberls/internal/template"
)

// templateLinter reports template syntax errors, in template files and in
// the hbs tagged templates of scripts.
func templateLinter(ctx context.Context, doc project.Document) ([]project.Diagnostic, error) {
	path, err := project.PathFromURI(doc.URI)
	if err != nil {
		return nil, err
	}
	sources, err := resolve.SourcesForDocument(ctx, path, doc.Text)
	if err != nil {
		return nil, err
	}

	var out []project.Diagnostic
	for _, src := range sources {
		_, err := template.Parse(src.Text)
		if err == nil {
			continue
		}
		var syntaxErr *template.SyntaxError
		if !errors.As(err, &syntaxErr) {
			return out, err
		}
		pos := syntaxErr.Pos
		if pos.Line == 0 {
			pos.Column += src.Start.Column
		}
		pos.Line += src.Start.Line
		out = append(out, project.Diagnostic{
			Range:    Range{Start: pos, End: pos},
			Severity: project.SeverityError,
			Message:  syntaxErr.Msg,
			Source:   "emberls",
		})
	}
	return out, nil
}
