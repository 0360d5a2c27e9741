package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/emberls"
	"github.com/jward/emberls/internal/store"
)

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Keep a project's registry current as files change",
	Long:  "Loads the project and applies file changes to its registry until interrupted. With --db the snapshot is rewritten after every batch of changes.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&flagDB, "db", "", "rewrite the snapshot in this database after changes")
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	var applied func(context.Context, *emberls.Project)
	if flagDB != "" {
		st, err := openStore(resolveDBPath(root))
		if err != nil {
			return err
		}
		defer st.Close()
		applied = saveSnapshot(s, st, root)
		applied(ctx, nil)
	}

	fmt.Fprintf(os.Stderr, "Watching %s\n", root)
	return s.Watch(ctx, root, applied)
}

// saveSnapshot rewrites the stored snapshot of root after each batch.
func saveSnapshot(s *emberls.Server, st *store.Store, root string) func(context.Context, *emberls.Project) {
	return func(ctx context.Context, _ *emberls.Project) {
		snap, err := s.Snapshot(ctx, root, true)
		if err == nil {
			err = st.SaveSnapshot(ctx, snap)
		}
		if err != nil {
			s.Logger().Error("saving snapshot failed", "root", root, "err", err)
			return
		}
		s.Logger().Debug("snapshot saved", "root", root, "symbols", len(snap.Symbols))
	}
}
