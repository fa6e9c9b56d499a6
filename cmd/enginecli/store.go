package main

import (
	"os"

	"github.com/i-e-b/StreamDb-sub000/internal/core"
)

// openStore opens (or creates) an OS file at path and wraps it as a
// PageTable, using the persistent --verbose/--quick-and-dirty flags.
func openStore(path string) (*core.PageTable, *os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, nil, err
	}

	table, err := core.Open(f, core.Options{
		QuickAndDirty: quickDirty,
		Logger:        log,
	})
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return table, f, nil
}

func closeStore(table *core.PageTable, f *os.File) {
	table.Close()
	_ = f.Close()
}
