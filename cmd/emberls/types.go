package main

// CLIResult is the top-level envelope for every command's output.
type CLIResult struct {
	Command string `json:"command" yaml:"command"`
	Results any    `json:"results" yaml:"results"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CLISymbol is a registry entry, live or read from the database.
type CLISymbol struct {
	Type string `json:"type" yaml:"type"`
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
	Test bool   `json:"test,omitempty" yaml:"test,omitempty"`
	Hash string `json:"hash,omitempty" yaml:"hash,omitempty"`
}

// CLILocation is a definition target. Lines and columns are 0-based.
type CLILocation struct {
	File      string `json:"file" yaml:"file"`
	StartLine int    `json:"start_line" yaml:"start_line"`
	StartCol  int    `json:"start_col" yaml:"start_col"`
	EndLine   int    `json:"end_line" yaml:"end_line"`
	EndCol    int    `json:"end_col" yaml:"end_col"`
}

// CLICompletion is one completion item.
type CLICompletion struct {
	Label  string `json:"label" yaml:"label"`
	Kind   string `json:"kind" yaml:"kind"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// CLIClassification is the context found at a cursor.
type CLIClassification struct {
	File string `json:"file" yaml:"file"`
	Line int    `json:"line" yaml:"line"`
	Col  int    `json:"col" yaml:"col"`
	Kind string `json:"kind" yaml:"kind"`
}

// CLIDiagnostic is one lint finding.
type CLIDiagnostic struct {
	File     string `json:"file" yaml:"file"`
	Line     int    `json:"line" yaml:"line"`
	Col      int    `json:"col" yaml:"col"`
	Severity string `json:"severity" yaml:"severity"`
	Message  string `json:"message" yaml:"message"`
}

// CLIProject summarizes a stored snapshot.
type CLIProject struct {
	Root      string `json:"root" yaml:"root"`
	Name      string `json:"name" yaml:"name"`
	Symbols   int    `json:"symbols" yaml:"symbols"`
	IndexedAt string `json:"indexed_at" yaml:"indexed_at"`
}
