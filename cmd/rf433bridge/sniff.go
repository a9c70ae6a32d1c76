package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-rf433/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-rf433/internal/rf433"
)

// sniffBuffer bounds intervals waiting to be printed. The decode worker
// never blocks on the terminal; overflow is counted.
const sniffBuffer = 4096

type tapped struct {
	interval uint32
	sym      rf433.Symbol
}

type sniffOptions struct {
	annotate bool
	noFrames bool
}

func newSniffCmd(opts *rootOptions) *cobra.Command {
	so := &sniffOptions{}
	cmd := &cobra.Command{
		Use:   "sniff",
		Short: "Print every interval seen on the receive pin",
		Long: `Prints one interval in microseconds per line while the decoder runs.
Decoded frames are interleaved as '#' comment lines, so the output can be
saved and fed back to 'rf433bridge replay'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sniff(cmd.Context(), opts.configPath, so, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&so.annotate, "annotate", "a", false, "Show the symbol each interval classifies as")
	cmd.Flags().BoolVar(&so.noFrames, "no-frames", false, "Do not print decoded frames")
	return cmd
}

func sniff(ctx context.Context, configPath string, so *sniffOptions, out io.Writer) error {
	cfg, err := loadConfig(configPath, true)
	if err != nil {
		return err
	}
	cfg.Logging.Output = "stderr"
	log := logging.New(cfg.Logging, version)

	intervals := make(chan tapped, sniffBuffer)
	var dropped atomic.Uint64
	tap := func(iv uint32, sym rf433.Symbol) {
		select {
		case intervals <- tapped{iv, sym}:
		default:
			dropped.Add(1)
		}
	}

	rx, err := openReceiver(cfg, log, rf433.WithIntervalTap(tap))
	if err != nil {
		return err
	}
	defer rx.Close()

	if err := rx.dev.StartReceiving(); err != nil {
		return fmt.Errorf("starting receiver: %w", err)
	}
	fmt.Fprintf(out, "# sniffing %s (%s), interrupt to stop\n", cfg.Receiver.Pin, cfg.Receiver.Protocol)

	frames := make(chan rf433.Frame, 1)
	st := newStyles(out)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return readFrames(gctx, rx.dev, frames)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case t := <-intervals:
				fmt.Fprintln(out, st.formatInterval(t.interval, t.sym, so.annotate))
			case f := <-frames:
				if !so.noFrames {
					fmt.Fprintln(out, st.formatFrame(f))
				}
			}
		}
	})

	err = g.Wait()
	s := rx.dev.Stats()
	fmt.Fprintf(out, "# edges %d frames %d dropped %d print_dropped %d\n",
		s.Edges, s.Frames, s.IntervalsDropped, dropped.Load())
	return err
}

// readFrames forwards frames from the device until ctx ends.
func readFrames(ctx context.Context, dev *rf433.Device, frames chan<- rf433.Frame) error {
	buf := make([]rf433.Frame, 1)
	for {
		n, err := dev.Read(ctx, buf, 1)
		if n == 1 {
			select {
			case frames <- buf[0]:
			case <-ctx.Done():
				return nil
			}
		}
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, rf433.ErrShutdown):
			return err
		default:
			return fmt.Errorf("reading frames: %w", err)
		}
	}
}
