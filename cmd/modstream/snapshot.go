package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"modstream/internal/errors"
	"modstream/internal/source"
)

var snapshotDB string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <dir>",
	Short: "Store a package tree in a SQLite snapshot",
	Long: `Store every .js and .mjs file under a directory in a single SQLite database.
The snapshot records the directory as its package root and can be bundled or
served with --db without access to the original tree.

Examples:
  modstream snapshot . --db app.db
  modstream bundle src/main.js --db app.db`,
	Args: cobra.ExactArgs(1),
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotDB, "db", "", "Snapshot database to create or update")
	_ = snapshotCmd.MarkFlagRequired("db")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}

	dir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()

	store, err := source.OpenSQLiteStore(snapshotDB, s.logger)
	if err != nil {
		return errors.NewBundleError(errors.LoadError, "cannot open snapshot", err)
	}
	defer func() { _ = store.Close() }()

	n, err := store.Import(ctx, source.NewFSStore(nil), filepath.ToSlash(dir))
	if err != nil {
		return err
	}

	s.logger.Info("Snapshot written", "db", snapshotDB, "root", dir, "modules", n)
	fmt.Fprintf(cmd.OutOrStdout(), "Stored %d modules from %s in %s\n", n, dir, snapshotDB)
	return nil
}
