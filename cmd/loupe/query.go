package main

import (
	"github.com/spf13/cobra"

	"github.com/loupe-dev/loupe/internal/query"
)

var flagOne bool

var locateCmd = &cobra.Command{
	Use:   "locate <name>",
	Short: "Find entities by name, qualified name, or path:qualified_name",
	Args:  cobra.ExactArgs(1),
	RunE:  runLocate,
}

var infoCmd = &cobra.Command{
	Use:   "info <path[:entity]>",
	Short: "Describe one entity: location plus summary, docs, or signature",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var fileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "List a file's entities with their index status",
	Args:  cobra.ExactArgs(1),
	RunE:  runFile,
}

func init() {
	locateCmd.Flags().BoolVar(&flagOne, "one", false, "fail unless exactly one entity matches")
}

func runLocate(cmd *cobra.Command, args []string) error {
	root, store, err := openIndex()
	if err != nil {
		return err
	}
	defer store.Close()

	q := query.New(root, store)
	if flagOne {
		loc, err := q.LocateOne(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(loc)
	}
	locations, err := q.Locate(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(locations)
}

func runInfo(cmd *cobra.Command, args []string) error {
	root, store, err := openIndex()
	if err != nil {
		return err
	}
	defer store.Close()

	info, err := query.New(root, store).Info(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(info)
}

func runFile(cmd *cobra.Command, args []string) error {
	root, store, err := openIndex()
	if err != nil {
		return err
	}
	defer store.Close()

	report, err := query.New(root, store).FileInfo(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(report)
}
