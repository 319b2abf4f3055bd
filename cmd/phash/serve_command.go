package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/GriffinCanCode/phash/internal/config"
	"github.com/GriffinCanCode/phash/internal/imageio"
	"github.com/GriffinCanCode/phash/internal/phash"
	"github.com/GriffinCanCode/phash/internal/rpc"
	"github.com/GriffinCanCode/phash/internal/server"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var httpAddr, grpcAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/WebSocket API and the gRPC service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			scfg := cfg.Server
			if httpAddr != "" {
				scfg.HTTPAddr = httpAddr
			}
			if grpcAddr != "" {
				scfg.GRPCAddr = grpcAddr
			}

			hasher, err := ctx.hasher()
			if err != nil {
				return err
			}

			httpLis, err := net.Listen("tcp", scfg.HTTPAddr)
			if err != nil {
				return fmt.Errorf("listen http %s: %w", scfg.HTTPAddr, err)
			}
			grpcLis, err := net.Listen("tcp", scfg.GRPCAddr)
			if err != nil {
				_ = httpLis.Close()
				return fmt.Errorf("listen grpc %s: %w", scfg.GRPCAddr, err)
			}
			return serve(cmd.Context(), scfg, hasher, ctx.decoder(), httpLis, grpcLis)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP/WebSocket listen address")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address")
	return cmd
}

// serve runs both servers until ctx is cancelled, then shuts them down.
func serve(ctx context.Context, cfg config.Server, hasher *phash.Hasher, decoder *imageio.Decoder, httpLis, grpcLis net.Listener) error {
	api := server.New(hasher, decoder, cfg)
	httpServer := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
	grpcServer := rpc.NewServer(rpc.NewService(hasher, decoder), cfg.MaxUploadBytes)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server starting", "addr", httpLis.Addr().String(), "hash", hasher.Config().Key())
		if err := httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		slog.Info("grpc server starting", "addr", grpcLis.Addr().String())
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		if err != nil {
			slog.Error("http shutdown error", "error", err)
		}

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			grpcServer.Stop()
		}

		slog.Info("shutdown complete")
		return err
	})
	return g.Wait()
}
