package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
	"github.com/GriffinCanCode/phash/internal/grpcclient"
	"github.com/GriffinCanCode/phash/internal/phash"
)

func newClientCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "client [--addr host:port] <file1> [file2]",
		Short: "Fingerprint images through a running phash service",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Client.Addr
			}

			client, err := grpcclient.New(addr, grpcclient.Options{
				Timeout: time.Duration(cfg.Client.TimeoutSeconds * float64(time.Second)),
			})
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			return runClient(cmd, client, firstTwo(args))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Service address (host:port)")
	return cmd
}

func runClient(cmd *cobra.Command, client *grpcclient.Client, paths []string) error {
	out := cmd.OutOrStdout()

	fps := make([]phash.Fingerprint, 0, len(paths))
	for _, path := range paths {
		res, err := client.HashFile(cmd.Context(), path)
		if err != nil {
			return clientError(err)
		}
		fmt.Fprintf(out, "%s: %s\n", path, res.Hash.Hex())
		fps = append(fps, res.Hash)
	}

	if len(fps) == 2 {
		d, err := client.Distance(cmd.Context(), fps[0], fps[1])
		if err != nil {
			return err
		}
		printDistance(out, d)
	}
	return nil
}

// clientError reports rejected input like a local open failure and passes
// transport errors through.
func clientError(err error) error {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeNotFound, apperrors.CodeDecodeFailure, apperrors.CodeTooLarge, apperrors.CodeInvalidInput:
		return openError(err)
	}
	return err
}
