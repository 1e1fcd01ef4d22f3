package main

import (
	"github.com/spf13/cobra"

	"github.com/loupe-dev/loupe/internal/config"
	"github.com/loupe-dev/loupe/internal/search"
	"github.com/loupe-dev/loupe/internal/summarize"
)

var flagForce bool

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Keyword search over entity summaries and docs (BM25)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var summariseCmd = &cobra.Command{
	Use:     "summarise",
	Aliases: []string{"summarize"},
	Short:   "Generate summaries for entities that lack a valid one",
	Args:    cobra.NoArgs,
	RunE:    runSummarise,
}

func init() {
	summariseCmd.Flags().BoolVar(&flagForce, "force", false, "regenerate all summaries")
}

func runSearch(cmd *cobra.Command, args []string) error {
	root, store, err := openIndex()
	if err != nil {
		return err
	}
	defer store.Close()

	cfg := config.Load(root)
	results, err := search.New(root, store, cfg.Search).Search(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(results)
}

func runSummarise(cmd *cobra.Command, args []string) error {
	root, store, err := openIndex()
	if err != nil {
		return err
	}
	defer store.Close()

	cfg := config.Load(root)
	gen := summarize.NewClient(cfg.Summarize.Endpoint, cfg.Summarize.Model)
	runner := summarize.NewRunner(root, store, gen, cfg.Summarize)

	stats, err := runner.Run(cmd.Context(), flagForce)
	if err != nil {
		return err
	}
	return printJSON(stats)
}
