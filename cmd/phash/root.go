package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/phash/internal/phash"
)

func newRootCommand() *cobra.Command {
	var flags globalFlags
	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:               "phash <file1> [file2]",
		Short:             "Perceptual image fingerprints",
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig(cmd.ErrOrStderr())
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errUsage
			}
			return runHash(cmd, ctx, firstTwo(args))
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	pf.IntVar(&flags.width, "width", 0, "Hash grid width")
	pf.IntVar(&flags.height, "height", 0, "Hash grid height")
	pf.StringVar(&flags.filter, "filter", "", "Resampling filter (nearest, bilinear, bicubic, mitchell, lanczos2, lanczos3)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format (auto, text, json)")

	rootCmd.AddCommand(newBatchCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newClientCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))

	return rootCmd
}

func runHash(cmd *cobra.Command, ctx *commandContext, paths []string) error {
	hasher, err := ctx.hasher()
	if err != nil {
		return err
	}
	decoder := ctx.decoder()
	out := cmd.OutOrStdout()

	fps := make([]phash.Fingerprint, 0, len(paths))
	for _, path := range paths {
		img, _, err := decoder.Open(path)
		if err != nil {
			return openError(err)
		}
		fp, err := hasher.Hash(img)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %s\n", path, fp.Hex())
		fps = append(fps, fp)
	}

	if len(fps) == 2 {
		d, err := phash.Distance(fps[0], fps[1])
		if err != nil {
			return err
		}
		printDistance(out, d)
	}
	return nil
}

func printDistance(w io.Writer, d int) {
	fmt.Fprintf(w, "distance: %d\n", d)
}

// firstTwo drops arguments after the second; only two images are compared.
func firstTwo(args []string) []string {
	return args[:min(len(args), 2)]
}
