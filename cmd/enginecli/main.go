// Command enginecli is a demonstration shell over the page-based document
// store in internal/core. It is not part of the engine's tested contract --
// see SPEC_FULL.md §D -- it exists so the engine can be driven end to end
// against a real OS file from a terminal, the way the teacher's own tests
// drive it in memory.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
