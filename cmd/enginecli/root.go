package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	verbose    bool
	useGzip    bool
	quickDirty bool
)

var log zerolog.Logger

var rootCmd = &cobra.Command{
	Use:   "enginecli",
	Short: "Drive the page-based document store from a terminal",
	Long: `enginecli opens a document store backed by a single OS file and
exercises its page-table operations: writing document streams, binding them
to paths, looking them up, and reporting storage statistics.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(level).
			With().Timestamp().Logger()
	},
}

func init() {
	var flags *pflag.FlagSet = rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "log page-table activity to stderr")
	flags.BoolVar(&useGzip, "gzip", false, "gzip document payloads at the CLI boundary only")
	flags.BoolVar(&quickDirty, "quick-and-dirty", false, "skip CRC validation on page read")

	rootCmd.AddCommand(putCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(bindCmd)
	rootCmd.AddCommand(unbindCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(statsCmd)
}
