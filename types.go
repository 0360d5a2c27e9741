package emberls

import (
	"github.com/jward/emberls/internal/ast"
	"github.com/jward/emberls/internal/classify"
	"github.com/jward/emberls/internal/config"
	"github.com/jward/emberls/internal/project"
	"github.com/jward/emberls/internal/resolve"
	"github.com/jward/emberls/internal/store"
)

// Public aliases for the internal types that appear in the Server API.

type Position = ast.Position
type Range = ast.Range
type Location = resolve.Location
type CompletionItem = resolve.CompletionItem
type ItemKind = resolve.ItemKind
type Kind = classify.Kind
type ChangeKind = project.ChangeKind
type Project = project.Project
type Document = project.Document
type Diagnostic = project.Diagnostic
type Config = config.Config
type Snapshot = store.Snapshot

// Change kinds accepted by TrackChange.
const (
	Created = project.Created
	Changed = project.Changed
	Deleted = project.Deleted
)

// DocumentPosition is a cursor in an open document. Text is the content
// the editor holds; when empty the file is read from disk.
type DocumentPosition struct {
	URI      string   `json:"uri" yaml:"uri"`
	Text     string   `json:"text,omitempty" yaml:"text,omitempty"`
	Position Position `json:"position" yaml:"position"`
}
