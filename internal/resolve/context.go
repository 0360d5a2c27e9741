package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/jward/emberls/internal/cache"
	"github.com/jward/emberls/internal/layout"
	"github.com/jward/emberls/internal/project"
	"github.com/jward/emberls/internal/script"
	"github.com/jward/emberls/internal/template"
)

// templateContext returns the this.* and @* names a component template can
// reference: members of the component's class plus the paths the template
// already uses. Results are memoized per root, document and content.
func (e *Engine) templateContext(ctx context.Context, p *project.Project, path, text string) []CompletionItem {
	memo := project.Memo[[]CompletionItem](p, "template-context")
	items, err := memo.Get(cache.ContentKey(p.Root(), path, text), func() ([]CompletionItem, error) {
		return e.lookupTemplateContext(ctx, p, path, text)
	})
	if err != nil {
		e.logger.Warn("template context lookup failed", "path", path, "err", err)
	}
	return items
}

func (e *Engine) lookupTemplateContext(ctx context.Context, p *project.Project, path, text string) ([]CompletionItem, error) {
	name, ok := componentForFile(path)
	if !ok {
		return nil, nil
	}

	var (
		items []CompletionItem
		errs  []error
	)
	q := symbolQuery{typ: layout.Component, name: name}
	for _, file := range e.existing(ctx, p.FS(), candidatePaths(p, q)) {
		lang, ok := script.LanguageForFile(file)
		if !ok {
			continue
		}
		src, err := e.readFile(ctx, p.FS(), file)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		members, err := script.ClassMembers(ctx, src, lang)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve: members of %s: %w", file, err))
			continue
		}
		for _, m := range members {
			items = append(items, memberItem(m))
		}
	}

	if tpl, err := template.Parse(text); err == nil {
		for _, prop := range template.Properties(tpl) {
			items = append(items, CompletionItem{
				Label:  prop,
				Kind:   ItemFunction,
				Detail: "Template Property: " + prop,
			})
		}
	} else {
		errs = append(errs, err)
	}

	items = uniqueLabels(items)
	if len(errs) > 0 {
		return items, fmt.Errorf("resolve: context of %s had %d error(s): %w", name, len(errs), errs[0])
	}
	return items, nil
}

func memberItem(m script.Member) CompletionItem {
	label := localizeName(m.Name)
	switch m.Kind {
	case script.MemberComputed:
		return CompletionItem{Label: label, Kind: ItemProperty, Detail: "ComputedProperty: " + m.Name}
	case script.MemberFunction:
		return CompletionItem{Label: label, Kind: ItemFunction, Detail: "Function: " + m.Name}
	}
	return CompletionItem{Label: label, Kind: ItemProperty, Detail: m.Name}
}

// localizeName prefixes class members with this. unless they are already
// this.* or @* references.
func localizeName(name string) string {
	if strings.HasPrefix(name, "this.") || strings.HasPrefix(name, "@") {
		return name
	}
	return "this." + name
}
