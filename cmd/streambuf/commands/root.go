package commands

import (
	"github.com/spf13/cobra"
	"github.com/trickstertwo/xlog"

	"github.com/akmistry/go-streambuf/streamconfig"
	"github.com/akmistry/go-streambuf/streamlog"
)

var (
	// Global flags
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "streambuf",
	Short: "Replay and collect byte streams through in-memory stream buffers",
	Long: `streambuf - drive the stream buffers from the command line.

Commands:
  replay   Read a file into a Source and write its paced chunks to stdout
  collect  Read stdin into a Sink and print the decoded contents

Settings are read from a YAML file given with --config, for example:

  source:
    frequency: 300    # milliseconds between chunks
    chunk_size: 5
  sink:
    limit: 1048576
  log_level: info

Command line flags override the file. Logs are JSON lines on stderr.

Examples:
  # Print a file five bytes at a time, one chunk every 300ms
  streambuf replay --chunk-size 5 --frequency 300ms notes.txt

  # Decode Latin-1 input
  printf 'caf\xe9' | streambuf collect --encoding latin1`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML settings file")
}

// setup loads the settings file, if any, and installs the logger for cmd.
func setup(cmd *cobra.Command) (*streamconfig.Config, *xlog.Logger, error) {
	cfg := streamconfig.Default()
	if configPath != "" {
		var err error
		cfg, err = streamconfig.Load(configPath)
		if err != nil {
			return nil, nil, err
		}
	}

	level := cfg.Level()
	if verbose {
		level = xlog.LevelDebug
	}
	log := streamlog.New(cmd.ErrOrStderr(), level).With(xlog.FStr("cmd", cmd.Name()))
	xlog.SetGlobal(log)
	return cfg, log, nil
}
