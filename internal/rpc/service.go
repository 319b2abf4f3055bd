package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/GriffinCanCode/phash/internal/errors"
	"github.com/GriffinCanCode/phash/internal/imageio"
	"github.com/GriffinCanCode/phash/internal/phash"
	"github.com/GriffinCanCode/phash/internal/trace"
)

// Envelope on top of the largest accepted image.
const messageOverhead = 1 << 10

// Service implements FingerprinterServer. Errors are *apperrors.AppError;
// grpc turns them into statuses through AppError.GRPCStatus.
type Service struct {
	hasher  *phash.Hasher
	decoder *imageio.Decoder
}

func NewService(hasher *phash.Hasher, decoder *imageio.Decoder) *Service {
	if hasher == nil {
		hasher = phash.Default()
	}
	if decoder == nil {
		decoder = imageio.NewDecoder(imageio.DefaultMaxPixels)
	}
	return &Service{hasher: hasher, decoder: decoder}
}

func (s *Service) Hash(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error) {
	_, span := trace.StartSpan(ctx, "rpc_hash")
	defer span.End()
	span.SetAttr("bytes", len(in.GetValue()))

	img, format, err := s.decoder.DecodeBytes(in.GetValue())
	if err != nil {
		return nil, err
	}
	fp, err := s.hasher.Hash(img)
	if err != nil {
		return nil, err
	}
	return HashResult{Hash: fp, Format: format}.ToStruct(), nil
}

func (s *Service) Distance(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	a, b, err := parseDistanceRequest(in)
	if err != nil {
		return nil, err
	}
	dist, err := phash.Distance(a, b)
	if err != nil {
		return nil, err
	}
	return distanceResponse(dist, a.Len()), nil
}

// NewServer builds a grpc.Server with the Fingerprinter service, the
// standard health service and trace propagation. maxUploadBytes bounds the
// request size.
func NewServer(svc *Service, maxUploadBytes int64, opts ...grpc.ServerOption) *grpc.Server {
	maxMsg := int(maxUploadBytes) + messageOverhead
	base := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(trace.UnaryServerInterceptor(), errorInterceptor()),
		grpc.MaxRecvMsgSize(maxMsg),
	}
	srv := grpc.NewServer(append(base, opts...)...)
	RegisterFingerprinterServer(srv, svc)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

// errorInterceptor makes sure every failure leaves as an AppError status,
// so clients can rebuild it with apperrors.FromGRPCError.
func errorInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if _, ok := apperrors.As(err); ok {
			return nil, err
		}
		switch {
		case errors.Is(err, context.Canceled):
			return nil, apperrors.Wrap(err, apperrors.CodeCancelled, "request cancelled")
		case errors.Is(err, context.DeadlineExceeded):
			return nil, apperrors.Wrap(err, apperrors.CodeTimeout, "request timed out")
		}
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "internal error").
			WithMetadata("method", info.FullMethod)
	}
}
