package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var getFile string

var getCmd = &cobra.Command{
	Use:   "get <db-file> <path>",
	Short: "Read the document bound to a path",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbFile, path := args[0], args[1]

		table, f, err := openStore(dbFile)
		if err != nil {
			return err
		}
		defer closeStore(table, f)

		did, err := table.GetDocumentIDByPath(path)
		if err != nil {
			return err
		}
		if did == nil {
			return errors.Errorf("no document bound to %q", path)
		}

		headPageId, err := table.GetDocumentHead(did)
		if err != nil {
			return err
		}
		if headPageId < 0 {
			return errors.Errorf("path %q resolves to a document with no live index entry", path)
		}

		raw, err := io.ReadAll(table.GetStream(headPageId))
		if err != nil {
			return err
		}
		payload, err := decompressPayload(raw)
		if err != nil {
			return err
		}

		var out io.Writer = os.Stdout
		if getFile != "" && getFile != "-" {
			dst, err := os.Create(getFile)
			if err != nil {
				return err
			}
			defer dst.Close()
			out = dst
		}

		_, err = out.Write(payload)
		return err
	},
}

func init() {
	getCmd.Flags().StringVar(&getFile, "file", "-", "destination file to write the document to ('-' for stdout)")
}
