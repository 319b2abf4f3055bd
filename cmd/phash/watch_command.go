package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
	"github.com/GriffinCanCode/phash/internal/frames"
	"github.com/GriffinCanCode/phash/internal/screen"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		interval  time.Duration
		threshold int
		count     int
		command   string
		all       bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Fingerprint the screen periodically and report distinct frames",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.Server.SimilarThreshold
			}
			if threshold < 0 {
				return apperrors.New(apperrors.CodeInvalidInput, "threshold must be >= 0")
			}

			var capturer screen.Capturer
			if command != "" {
				capturer, err = screen.ParseCommand(command)
			} else {
				capturer, err = screen.New()
			}
			if err != nil {
				return err
			}
			defer func() { _ = capturer.Close() }()

			hasher, err := ctx.hasher()
			if err != nil {
				return err
			}
			tracker := frames.NewTracker(hasher, threshold)
			w := screen.NewWatcher(capturer, ctx.decoder(), tracker, interval)

			out := cmd.OutOrStdout()
			err = w.Run(cmd.Context(), count, func(o frames.Observation) {
				if o.Similar && !all {
					return
				}
				fmt.Fprintf(out, "frame %d: %s distance=%d similar=%t\n", o.Seq, o.Hash.Hex(), o.Distance, o.Similar)
			})
			st := tracker.Stats()
			fmt.Fprintf(out, "frames: %d distinct: %d similar: %d\n", st.Frames, st.Distinct, st.Similar)
			return err
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", screen.DefaultInterval, "Time between captures")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "Frames within this distance of the last distinct frame are similar")
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many frames (0 = until interrupted)")
	cmd.Flags().StringVar(&command, "command", "", "Capture command; {file} is replaced by the output path")
	cmd.Flags().BoolVar(&all, "all", false, "Also print similar frames")
	return cmd
}
