package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/emberls/internal/store"
)

var (
	flagTypes []string
	flagMatch string
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols [path]",
	Short: "List registry entries",
	Long:  "Lists the project's registry entries. With --db the entries come from the last index run instead of a fresh walk.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSymbols,
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List the projects stored in the database",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

func init() {
	symbolsCmd.Flags().StringVar(&flagDB, "db", "", "read from this database instead of walking the project")
	symbolsCmd.Flags().StringSliceVar(&flagTypes, "type", nil, "symbol types to include (e.g. component,helper)")
	symbolsCmd.Flags().StringVar(&flagMatch, "match", "", "substring the symbol name must contain")
	projectsCmd.Flags().StringVar(&flagDB, "db", "", "database path (default: .emberls/index.db in the current project)")
}

func runSymbols(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	root, err := resolveProjectRoot(args)
	if err != nil {
		return outputError("symbols", err)
	}

	var results []CLISymbol
	if flagDB != "" {
		st, err := openExistingStore(resolveDBPath(root))
		if err != nil {
			return outputError("symbols", err)
		}
		defer st.Close()
		syms, err := st.FindSymbols(ctx, root, flagMatch, flagTypes...)
		if err != nil {
			return outputError("symbols", err)
		}
		for _, sym := range syms {
			results = append(results, CLISymbol{Type: sym.Type, Name: sym.Name, Path: sym.Path, Test: sym.Test, Hash: sym.Hash})
		}
		return outputResult(CLIResult{Command: "symbols", Results: results})
	}

	s, err := openServer(ctx, root)
	if err != nil {
		return outputError("symbols", err)
	}
	defer s.Close()

	p := s.Projects()[0]
	types := make(map[string]bool, len(flagTypes))
	for _, t := range flagTypes {
		types[t] = true
	}
	for _, e := range p.Registry().Entries() {
		if len(types) > 0 && !types[string(e.Type)] {
			continue
		}
		if flagMatch != "" && !strings.Contains(e.Name, flagMatch) {
			continue
		}
		m, _ := p.MatchPathToType(e.Path)
		results = append(results, CLISymbol{Type: string(e.Type), Name: e.Name, Path: e.Path, Test: m.Test})
	}
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Path < b.Path
	})
	return outputResult(CLIResult{Command: "symbols", Results: results})
}

func runProjects(cmd *cobra.Command, args []string) error {
	dbPath := flagDB
	if dbPath == "" {
		root, err := resolveProjectRoot(nil)
		if err != nil {
			return outputError("projects", err)
		}
		dbPath = resolveDBPath(root)
	}
	st, err := openExistingStore(dbPath)
	if err != nil {
		return outputError("projects", err)
	}
	defer st.Close()

	infos, err := st.Projects(cmd.Context())
	if err != nil {
		return outputError("projects", err)
	}
	results := make([]CLIProject, 0, len(infos))
	for _, info := range infos {
		results = append(results, CLIProject{
			Root:      info.Root,
			Name:      info.Name,
			Symbols:   info.Symbols,
			IndexedAt: info.IndexedAt.Format(time.RFC3339),
		})
	}
	return outputResult(CLIResult{Command: "projects", Results: results})
}

// openExistingStore opens a database written by a previous index run.
func openExistingStore(dbPath string) (*store.Store, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'emberls index' first)", dbPath)
	}
	return openStore(dbPath)
}
