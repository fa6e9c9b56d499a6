package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/i-e-b/StreamDb-sub000/internal/support"
)

var bindCmd = &cobra.Command{
	Use:   "bind <db-file> <path> <doc-id-hex>",
	Short: "Bind an existing document id to a path, displacing any previous binding",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbFile, path, idHex := args[0], args[1], args[2]

		raw, err := hex.DecodeString(idHex)
		if err != nil {
			return err
		}
		did, err := support.DocumentIDFromBytes(raw)
		if err != nil {
			return err
		}

		table, f, err := openStore(dbFile)
		if err != nil {
			return err
		}
		defer closeStore(table, f)

		previous, err := table.BindPath(path, did)
		if err != nil {
			return err
		}
		if previous != nil {
			fmt.Printf("displaced %s\n", hex.EncodeToString(previous.Bytes()))
		}
		return nil
	},
}

var unbindCmd = &cobra.Command{
	Use:   "unbind <db-file> <path>",
	Short: "Remove a path's binding, leaving the document itself untouched",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbFile, path := args[0], args[1]

		table, f, err := openStore(dbFile)
		if err != nil {
			return err
		}
		defer closeStore(table, f)

		return table.UnbindPath(path)
	},
}
