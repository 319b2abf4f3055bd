// Package grpcclient talks to a remote phash.v1.Fingerprinter service.
package grpcclient

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
	"github.com/GriffinCanCode/phash/internal/phash"
	"github.com/GriffinCanCode/phash/internal/resilience"
	"github.com/GriffinCanCode/phash/internal/rpc"
	"github.com/GriffinCanCode/phash/internal/trace"
)

// Options tune a Client. Zero values select the defaults.
type Options struct {
	Timeout     time.Duration
	Breaker     resilience.Config
	Retry       resilience.RetryConfig
	DialOptions []grpc.DialOption
}

// Client wraps the Fingerprinter stub with per-call timeouts, retry and a
// circuit breaker. Errors are returned as *apperrors.AppError.
type Client struct {
	conn    *grpc.ClientConn
	stub    rpc.FingerprinterClient
	timeout time.Duration
	breaker *resilience.Breaker
	retry   resilience.RetryConfig
}

// New creates a client for addr. The connection is established lazily.
func New(addr string, opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retry.IsRetryable == nil && opts.Retry.MaxRetries == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}

	dial := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(trace.UnaryClientInterceptor()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    DefaultKeepaliveTime,
			Timeout: DefaultKeepaliveTimeout,
		}),
		grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(DefaultMaxSendBytes)),
	}
	conn, err := grpc.NewClient(addr, append(dial, opts.DialOptions...)...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "create grpc client").WithMetadata("addr", addr)
	}

	breaker := resilience.New(opts.Breaker).WithHook(func(from, to resilience.State) {
		slog.Debug("fingerprinter breaker", "addr", addr, "from", from.String(), "to", to.String())
	})
	return &Client{
		conn:    conn,
		stub:    rpc.NewFingerprinterClient(conn),
		timeout: opts.Timeout,
		breaker: breaker,
		retry:   opts.Retry,
	}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Breaker exposes the circuit breaker state.
func (c *Client) Breaker() *resilience.Breaker { return c.breaker }

// Hash sends encoded image bytes and returns the remote fingerprint.
func (c *Client) Hash(ctx context.Context, data []byte) (rpc.HashResult, error) {
	resp, err := call(ctx, c, func(ctx context.Context) (*structpb.Struct, error) {
		return c.stub.Hash(ctx, wrapperspb.Bytes(data))
	})
	if err != nil {
		return rpc.HashResult{}, err
	}
	return rpc.HashResultFromStruct(resp)
}

// HashFile reads path and hashes it remotely.
func (c *Client) HashFile(ctx context.Context, path string) (rpc.HashResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		code := apperrors.CodeDecodeFailure
		if errors.Is(err, os.ErrNotExist) {
			code = apperrors.CodeNotFound
		}
		return rpc.HashResult{}, apperrors.Wrap(err, code, "cannot open image").WithMetadata("path", path)
	}
	return c.Hash(ctx, data)
}

// Distance asks the service for the Hamming distance between a and b.
func (c *Client) Distance(ctx context.Context, a, b phash.Fingerprint) (int, error) {
	resp, err := call(ctx, c, func(ctx context.Context) (*structpb.Struct, error) {
		return c.stub.Distance(ctx, rpc.DistanceRequest(a, b))
	})
	if err != nil {
		return 0, err
	}
	return rpc.DistanceFromStruct(resp)
}

// call runs one RPC under retry and the breaker. Only transport failures
// count against the breaker; a rejected image does not.
func call[T any](ctx context.Context, c *Client, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := resilience.Retry(ctx, c.retry, func() error {
		res, err := resilience.ExecuteWithResult(c.breaker, func() (T, error) {
			callCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			return fn(callCtx)
		}, resilience.IsRetryableGRPC)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		var zero T
		if errors.Is(err, resilience.ErrOpen) {
			return zero, apperrors.Wrap(err, apperrors.CodeUnavailable, "fingerprint service unavailable")
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return zero, apperrors.Wrap(err, apperrors.CodeTimeout, "request timed out")
			}
			return zero, apperrors.Wrap(err, apperrors.CodeCancelled, "request cancelled")
		}
		return zero, apperrors.FromGRPCError(err)
	}
	return out, nil
}
