// Package emberls answers code-intelligence requests for Ember projects:
// go-to-definition and completion inside JavaScript, TypeScript and
// Handlebars files, resolved against the file layout conventions the Ember
// resolver uses (classic, pods, module unification and addons).
//
// # Pipeline
//
// A [Server] owns a set of projects. Each project is one host root plus the
// addons it composes, and keeps a registry of every symbol found by walking
// those roots. A request then runs in three steps:
//
//  1. Parse the document (tree-sitter for scripts, a Glimmer parser for
//     templates) and find the path from the root to the node under the
//     cursor.
//  2. Classify that path into a closed set of syntactic contexts, such as a
//     component in angle-bracket form or the model name passed to
//     store.findRecord.
//  3. Generate the candidate files for the referenced symbol from the
//     layout conventions, keep the ones that exist, and add registry and
//     addon-provided results.
//
// # Usage
//
//	s, err := emberls.New(emberls.WithConfig(cfg))
//	if err != nil { ... }
//	defer s.Close()
//
//	ctx := context.Background()
//	_, err = s.AddProject(ctx, "path/to/app")
//	locs, err := s.Definition(ctx, emberls.DocumentPosition{
//		URI:      "file:///path/to/app/app/templates/application.hbs",
//		Position: emberls.Position{Line: 3, Column: 8},
//	})
//
// # Addon scripts
//
// Addons may ship a Risor script, named by the "ember-language-server"
// key of their package.json, that extends completion and definition
// results. See the internal/runtime package for the globals scripts see.
package emberls
