package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/i-e-b/StreamDb-sub000/internal/support"
)

var putFile string

var putCmd = &cobra.Command{
	Use:   "put <db-file> <path>",
	Short: "Write a new document and bind it to a path",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbFile, path := args[0], args[1]

		var src io.Reader = os.Stdin
		if putFile != "" && putFile != "-" {
			f, err := os.Open(putFile)
			if err != nil {
				return err
			}
			defer f.Close()
			src = f
		}

		raw, err := io.ReadAll(src)
		if err != nil {
			return err
		}
		payload, err := compressPayload(raw)
		if err != nil {
			return err
		}

		table, f, err := openStore(dbFile)
		if err != nil {
			return err
		}
		defer closeStore(table, f)

		did, err := support.NewDocumentID()
		if err != nil {
			return err
		}

		headPageId, err := table.WriteDocumentStream(did, bytes.NewReader(payload))
		if err != nil {
			return err
		}

		if _, err := table.BindIndex(did, headPageId); err != nil {
			return err
		}
		if _, err := table.BindPath(path, did); err != nil {
			return err
		}

		fmt.Printf("%s\t%s\n", hex.EncodeToString(did.Bytes()), path)
		return nil
	},
}

func init() {
	putCmd.Flags().StringVar(&putFile, "file", "-", "source file to read the document from ('-' for stdin)")
}
