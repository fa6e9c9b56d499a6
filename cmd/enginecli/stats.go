package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <db-file>",
	Short: "Report the page-chain lengths of the index, free list and path lookup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, f, err := openStore(args[0])
		if err != nil {
			return err
		}
		defer closeStore(table, f)

		stats, err := table.Stats()
		if err != nil {
			return err
		}

		fmt.Printf("index chain:       %d page(s)\n", stats.IndexChainLength)
		fmt.Printf("free list chain:   %d page(s)\n", stats.FreeListChainLength)
		fmt.Printf("path lookup chain: %d page(s)\n", stats.PathLookupChainLength)
		return nil
	},
}
