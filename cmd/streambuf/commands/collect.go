package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/akmistry/go-streambuf/streambuffer"
)

var (
	collectLimit    int
	collectEncoding string
	collectStats    bool
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect stdin into a sink and print it",
	Long: `Copy stdin into a Sink, then print its contents decoded with
--encoding. With --limit, input beyond the limit is dropped with a warning.
With --stats, print the buffered size and buffer capacity instead.

Examples:
  printf 'caf\xe9' | streambuf collect --encoding latin1
  streambuf collect --stats < big.bin`,
	Args: cobra.NoArgs,
	RunE: runCollect,
}

func init() {
	collectCmd.Flags().IntVar(&collectLimit, "limit", 0, "maximum bytes to keep, 0 is unbounded")
	collectCmd.Flags().StringVar(&collectEncoding, "encoding", "utf-8", "character encoding of the input")
	collectCmd.Flags().BoolVar(&collectStats, "stats", false, "print size and capacity instead of contents")
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	enc, err := streambuffer.LookupEncoding(collectEncoding)
	if err != nil {
		return err
	}

	opts := cfg.SinkOptions()
	if cmd.Flags().Changed("limit") {
		opts = append(opts, streambuffer.WithLimit(collectLimit))
	}
	opts = append(opts, streambuffer.WithLogger(log))
	sink, err := streambuffer.NewSink(opts...)
	if err != nil {
		return err
	}

	if _, err := io.Copy(sink, cmd.InOrStdin()); err != nil && !errors.Is(err, streambuffer.ErrOverflow) {
		return fmt.Errorf("collect: %w", err)
	}
	sink.Close()

	out := cmd.OutOrStdout()
	if collectStats {
		fmt.Fprintf(out, "size %d\ncapacity %d\n", sink.Size(), sink.MaxSize())
		return nil
	}
	if str, ok := sink.ContentsString(enc, 0); ok {
		fmt.Fprint(out, str)
	}
	if rest := sink.Size(); rest > 0 {
		log.Warn().Int("bytes", rest).Msg("input ends inside a character")
	}
	return nil
}
