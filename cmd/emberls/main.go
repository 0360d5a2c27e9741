package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jward/emberls"
	"github.com/jward/emberls/internal/config"
	"github.com/jward/emberls/internal/store"
)

var (
	flagDB       string
	flagFormat   string
	flagConfig   string
	flagLogLevel string
)

// errorHandled means outputError already reported the failure.
var errorHandled bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "emberls",
	Short:         "Definition and completion for Ember projects",
	Long:          "emberls resolves definitions and completions in Ember JavaScript, TypeScript and Handlebars files from the project's file layout.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text|yaml")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .emberls.yaml in the project root)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(definitionCmd)
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(watchCmd)
}

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Snapshot a project's registry into the database",
	Long:  "Walks the project and its addons, then writes every registry entry with a content hash to the SQLite database.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&flagDB, "db", "", "database path (default: .emberls/index.db in the project root)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := cmd.Context()

	root, err := resolveProjectRoot(args)
	if err != nil {
		return err
	}
	s, err := openServer(ctx, root)
	if err != nil {
		return err
	}
	defer s.Close()

	snap, err := s.Snapshot(ctx, root, true)
	if err != nil {
		return fmt.Errorf("capturing %s: %w", root, err)
	}

	dbPath := resolveDBPath(root)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	st, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %s: %d symbols, %d addons in %s\n",
		root, len(snap.Symbols), len(snap.Addons), time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	return nil
}

// loadConfig reads settings for a project root, applying --config and
// --log-level.
func loadConfig(ctx context.Context, root string) (*config.Config, error) {
	cfg, used, err := config.Load(ctx, config.LoadOptions{File: flagConfig, ProjectRoot: root})
	if err != nil {
		return nil, err
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if used != "" {
		fmt.Fprintf(os.Stderr, "Using config: %s\n", used)
	}
	return cfg, nil
}

// openServer creates a server with the project at root loaded.
func openServer(ctx context.Context, root string) (*emberls.Server, error) {
	cfg, err := loadConfig(ctx, root)
	if err != nil {
		return nil, err
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "emberls",
		Level:           level,
		ReportTimestamp: level == log.DebugLevel,
	})

	s, err := emberls.New(emberls.WithConfig(cfg), emberls.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	if _, err := s.AddProject(ctx, root); err != nil {
		s.Close()
		return nil, fmt.Errorf("loading project: %w", err)
	}
	return s, nil
}

func openStore(dbPath string) (*store.Store, error) {
	st, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := st.Migrate(); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return st, nil
}

// resolveProjectRoot returns the project root for an optional path
// argument: the nearest directory at or above it holding a package.json.
func resolveProjectRoot(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("path not found: %s", abs)
	}
	if !info.IsDir() {
		abs = filepath.Dir(abs)
	}
	root, ok := findProjectRoot(abs)
	if !ok {
		return "", fmt.Errorf("no package.json at or above %s", abs)
	}
	return root, nil
}

// findProjectRoot walks up from startDir looking for a package.json that
// is not inside node_modules.
func findProjectRoot(startDir string) (string, bool) {
	dir := startDir
	for {
		if _, err := os.Stat(filepath.Join(dir, "package.json")); err == nil && !inNodeModules(dir) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func inNodeModules(dir string) bool {
	for _, part := range strings.Split(filepath.ToSlash(dir), "/") {
		if part == "node_modules" {
			return true
		}
	}
	return false
}

// resolveDBPath is --db, or .emberls/index.db under the project root.
func resolveDBPath(root string) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		abs, err := filepath.Abs(flagDB)
		if err == nil {
			return abs
		}
	}
	return filepath.Join(root, ".emberls", "index.db")
}
