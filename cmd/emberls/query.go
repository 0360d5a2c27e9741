package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/emberls"
	"github.com/jward/emberls/internal/project"
)

// cursorArgs is the <file> <line> <col> triple shared by the cursor
// commands. All line and column numbers are 0-based.
var cursorArgs = cobra.ExactArgs(3)

var classifyCmd = &cobra.Command{
	Use:   "classify <file> <line> <col>",
	Short: "Print the syntactic context at a cursor",
	Args:  cursorArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, dp, err := cursorRequest(cmd, args)
		if err != nil {
			return outputError("classify", err)
		}
		defer s.Close()

		kind, err := s.Classify(cmd.Context(), dp)
		if err != nil {
			return outputError("classify", err)
		}
		return outputResult(CLIResult{Command: "classify", Results: CLIClassification{
			File: args[0],
			Line: dp.Position.Line,
			Col:  dp.Position.Column,
			Kind: kind.String(),
		}})
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <file> <line> <col>",
	Short: "List completions at a cursor",
	Args:  cursorArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, dp, err := cursorRequest(cmd, args)
		if err != nil {
			return outputError("complete", err)
		}
		defer s.Close()

		items, err := s.Complete(cmd.Context(), dp)
		if err != nil {
			return outputError("complete", err)
		}
		results := make([]CLICompletion, 0, len(items))
		for _, it := range items {
			results = append(results, CLICompletion{Label: it.Label, Kind: it.Kind.String(), Detail: it.Detail})
		}
		return outputResult(CLIResult{Command: "complete", Results: results})
	},
}

var definitionCmd = &cobra.Command{
	Use:   "definition <file> <line> <col>",
	Short: "Find the files defining the symbol at a cursor",
	Args:  cursorArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, dp, err := cursorRequest(cmd, args)
		if err != nil {
			return outputError("definition", err)
		}
		defer s.Close()

		locs, err := s.Definition(cmd.Context(), dp)
		if err != nil {
			return outputError("definition", err)
		}
		results := make([]CLILocation, 0, len(locs))
		for _, l := range locs {
			results = append(results, locationToCLI(l))
		}
		return outputResult(CLIResult{Command: "definition", Results: results})
	},
}

var lintCmd = &cobra.Command{
	Use:   "lint <file>",
	Short: "Report template syntax errors in a template or script",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := resolveFilePath(args[0])
		if err != nil {
			return outputError("lint", err)
		}
		s, err := serverForFile(cmd, file)
		if err != nil {
			return outputError("lint", err)
		}
		defer s.Close()

		text, err := readText(file)
		if err != nil {
			return outputError("lint", err)
		}
		diags, err := s.Lint(cmd.Context(), emberls.Document{URI: file, Text: text})
		if err != nil {
			return outputError("lint", err)
		}
		results := make([]CLIDiagnostic, 0, len(diags))
		for _, d := range diags {
			results = append(results, CLIDiagnostic{
				File:     args[0],
				Line:     d.Range.Start.Line,
				Col:      d.Range.Start.Column,
				Severity: severityName(d.Severity),
				Message:  d.Message,
			})
		}
		return outputResult(CLIResult{Command: "lint", Results: results})
	},
}

// --- helpers ---

// cursorRequest loads the project owning args[0] and builds the cursor.
func cursorRequest(cmd *cobra.Command, args []string) (*emberls.Server, emberls.DocumentPosition, error) {
	file, err := resolveFilePath(args[0])
	if err != nil {
		return nil, emberls.DocumentPosition{}, err
	}
	line, err := parseIntArg(args[1], "line")
	if err != nil {
		return nil, emberls.DocumentPosition{}, err
	}
	col, err := parseIntArg(args[2], "col")
	if err != nil {
		return nil, emberls.DocumentPosition{}, err
	}
	s, err := serverForFile(cmd, file)
	if err != nil {
		return nil, emberls.DocumentPosition{}, err
	}
	return s, emberls.DocumentPosition{
		URI:      file,
		Position: emberls.Position{Line: line, Column: col},
	}, nil
}

func serverForFile(cmd *cobra.Command, file string) (*emberls.Server, error) {
	root, err := resolveProjectRoot([]string{filepath.Dir(file)})
	if err != nil {
		return nil, err
	}
	return openServer(cmd.Context(), root)
}

func readText(file string) (string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", file, err)
	}
	return string(data), nil
}

// resolveFilePath makes a file argument absolute.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// parseIntArg parses a non-negative line or column argument.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

func locationToCLI(l emberls.Location) CLILocation {
	return CLILocation{
		File:      l.Path,
		StartLine: l.Range.Start.Line,
		StartCol:  l.Range.Start.Column,
		EndLine:   l.Range.End.Line,
		EndCol:    l.Range.End.Column,
	}
}

func severityName(s project.Severity) string {
	switch s {
	case project.SeverityError:
		return "error"
	case project.SeverityWarning:
		return "warning"
	case project.SeverityInformation:
		return "info"
	}
	return "hint"
}
