package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/trickstertwo/xlog"
	"golang.org/x/sync/errgroup"

	"github.com/akmistry/go-streambuf/bufferpool"
	"github.com/akmistry/go-streambuf/streambuffer"
)

const replayReadSize = 32 * 1024

var (
	replayFrequency time.Duration
	replayChunkSize int
	replayRate      int
)

var replayCmd = &cobra.Command{
	Use:   "replay [file]",
	Short: "Replay a file to stdout in paced chunks",
	Long: `Read a file, or stdin when no file is given, into a Source and copy
the chunks it emits to stdout. The source is stopped at end of input, so
the command exits once everything has been replayed.

Examples:
  streambuf replay --chunk-size 5 --frequency 300ms notes.txt
  cat big.bin | streambuf replay --rate 65536 > copy.bin`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().DurationVar(&replayFrequency, "frequency", streambuffer.DefaultFrequency, "delay between chunks")
	replayCmd.Flags().IntVar(&replayChunkSize, "chunk-size", streambuffer.DefaultChunkSize, "maximum bytes per chunk")
	replayCmd.Flags().IntVar(&replayRate, "rate", 0, "maximum bytes per second, 0 is unlimited")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	opts := cfg.SourceOptions()
	if cmd.Flags().Changed("frequency") {
		opts = append(opts, streambuffer.WithFrequency(replayFrequency))
	}
	if cmd.Flags().Changed("chunk-size") {
		opts = append(opts, streambuffer.WithChunkSize(replayChunkSize))
	}
	if cmd.Flags().Changed("rate") {
		opts = append(opts, streambuffer.WithRateLimit(replayRate))
	}
	opts = append(opts, streambuffer.WithLogger(log))
	src, err := streambuffer.NewSource(opts...)
	if err != nil {
		return err
	}
	defer src.Close()

	start := time.Now()
	n, err := replay(cmd.Context(), in, cmd.OutOrStdout(), src, log)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	log.Info().
		Int64("bytes", n).
		Dur("elapsed", time.Since(start)).
		Msg("replay complete")
	return nil
}

// replay feeds r into src while copying the emitted chunks to w.
func replay(ctx context.Context, r io.Reader, w io.Writer, src *streambuffer.Source, log *xlog.Logger) (int64, error) {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		buf := bufferpool.Get(replayReadSize)
		defer bufferpool.Put(buf)
		for ctx.Err() == nil {
			n, err := r.Read(buf)
			if n > 0 {
				if perr := src.PutBytes(buf[:n]); perr != nil {
					return perr
				}
			}
			if err == io.EOF {
				return src.Stop()
			} else if err != nil {
				src.Fail(err)
				return err
			}
		}
		return ctx.Err()
	})

	var written int64
	g.Go(func() error {
		for {
			chunk, err := src.Next(ctx)
			if err == io.EOF {
				return nil
			} else if err != nil {
				return err
			}
			n, err := w.Write(chunk)
			written += int64(n)
			if err != nil {
				return err
			}
			log.Trace().Int("bytes", n).Msg("chunk written")
		}
	})

	err := g.Wait()
	return written, err
}
