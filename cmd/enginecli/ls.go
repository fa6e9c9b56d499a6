package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls <db-file> [prefix]",
	Short: "List every bound path under prefix (an omitted or empty prefix lists nothing)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbFile := args[0]
		prefix := ""
		if len(args) == 2 {
			prefix = args[1]
		}

		table, f, err := openStore(dbFile)
		if err != nil {
			return err
		}
		defer closeStore(table, f)

		for _, path := range table.SearchPaths(prefix) {
			fmt.Println(path)
		}
		return nil
	},
}
