// Command loupe maintains a semantic index of a source repository and
// answers entity lookups, descriptions, and keyword searches against it.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/loupe-dev/loupe/internal/index"
	"github.com/loupe-dev/loupe/internal/query"
)

var version = "dev"

var (
	flagRepo    string
	flagVerbose bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps domain errors to 1 and unexpected ones to 2.
func exitCode(err error) int {
	var ambiguous *query.AmbiguousError
	var notFound *query.NotFoundError
	switch {
	case errors.Is(err, index.ErrIndexMissing),
		errors.Is(err, index.ErrIndexCorrupt),
		errors.As(err, &ambiguous),
		errors.As(err, &notFound):
		return 1
	default:
		return 2
	}
}

var rootCmd = &cobra.Command{
	Use:           "loupe",
	Short:         "Semantic code index with stable entity identity",
	Long:          "Loupe indexes source files with tree-sitter, tracks entities by structural hash so cosmetic edits never invalidate them, and answers lookups with extents read live from disk.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if flagVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRepo, "repo", "", "repository root (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(summariseCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the loupe version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("loupe", version)
	},
}

// repoRoot resolves the repository root from --repo or the working
// directory, as an absolute path.
func repoRoot() (string, error) {
	root := flagRepo
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		root = wd
	}
	return filepath.Abs(root)
}

// openIndex opens the committed index for the resolved repo root.
func openIndex() (string, *index.Store, error) {
	root, err := repoRoot()
	if err != nil {
		return "", nil, err
	}
	store, err := index.Open(root)
	if err != nil {
		return "", nil, err
	}
	return root, store, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
