package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loupe-dev/loupe/internal/config"
	"github.com/loupe-dev/loupe/internal/discover"
	"github.com/loupe-dev/loupe/internal/engine"
	"github.com/loupe-dev/loupe/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index current by polling for file changes",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	root, store, err := openIndex()
	if err != nil {
		return err
	}
	defer store.Close()

	cfg := config.Load(root)
	opts := discover.Options{
		IgnoreFile:  config.IgnoreFile(root),
		ExtraIgnore: cfg.Ignore,
	}

	e := engine.New(root, store)
	e.Discover = opts

	w := watcher.New(root, opts, func(ctx context.Context) error {
		report, err := e.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "updated: %d files changed, %d removed\n",
			report.FilesChanged, report.FilesRemoved)
		return nil
	})

	err = w.Run(cmd.Context())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
