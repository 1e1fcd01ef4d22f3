package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/loupe-dev/loupe/internal/config"
	"github.com/loupe-dev/loupe/internal/engine"
	"github.com/loupe-dev/loupe/internal/index"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create the index and run a full indexing pass",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Re-index files that changed since the last run",
	Args:  cobra.NoArgs,
	RunE:  runUpdate,
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		root, err = filepath.Abs(args[0])
		if err != nil {
			return err
		}
	}

	store, err := index.Create(root)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer store.Close()

	return runEngine(cmd, root, store)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	root, store, err := openIndex()
	if err != nil {
		return err
	}
	defer store.Close()

	return runEngine(cmd, root, store)
}

func runEngine(cmd *cobra.Command, root string, store *index.Store) error {
	cfg := config.Load(root)

	e := engine.New(root, store)
	e.Discover.IgnoreFile = config.IgnoreFile(root)
	e.Discover.ExtraIgnore = cfg.Ignore

	report, err := e.Run(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(report)
}
