// Package errors provides unified error handling with a structured Code.
// Codes map onto gRPC status codes and HTTP statuses so the CLI, the HTTP API
// and the gRPC service report the same failure the same way.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Code classifies an AppError.
type Code int

const (
	CodeUnknown Code = iota
	CodeInternal
	CodeInvalidInput
	CodeLengthMismatch
	CodeDecodeFailure
	CodeTooLarge
	CodeNotFound
	CodeConfigInvalid
	CodeUnavailable
	CodeTimeout
	CodeCancelled
	CodeRateLimited
)

var codeNames = map[Code]string{
	CodeUnknown:        "UNKNOWN",
	CodeInternal:       "INTERNAL",
	CodeInvalidInput:   "INVALID_INPUT",
	CodeLengthMismatch: "LENGTH_MISMATCH",
	CodeDecodeFailure:  "DECODE_FAILURE",
	CodeTooLarge:       "TOO_LARGE",
	CodeNotFound:       "NOT_FOUND",
	CodeConfigInvalid:  "CONFIG_INVALID",
	CodeUnavailable:    "UNAVAILABLE",
	CodeTimeout:        "TIMEOUT",
	CodeCancelled:      "CANCELLED",
	CodeRateLimited:    "RATE_LIMITED",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return codeNames[CodeUnknown]
}

// ParseCode is the inverse of Code.String. Unknown names map to CodeUnknown.
func ParseCode(s string) Code {
	for c, name := range codeNames {
		if name == s {
			return c
		}
	}
	return CodeUnknown
}

// grpcCodeMap maps Code to gRPC status codes.
var grpcCodeMap = map[Code]codes.Code{
	CodeUnknown:        codes.Unknown,
	CodeInternal:       codes.Internal,
	CodeInvalidInput:   codes.InvalidArgument,
	CodeLengthMismatch: codes.InvalidArgument,
	CodeDecodeFailure:  codes.InvalidArgument,
	CodeTooLarge:       codes.ResourceExhausted,
	CodeNotFound:       codes.NotFound,
	CodeConfigInvalid:  codes.FailedPrecondition,
	CodeUnavailable:    codes.Unavailable,
	CodeTimeout:        codes.DeadlineExceeded,
	CodeCancelled:      codes.Canceled,
	CodeRateLimited:    codes.ResourceExhausted,
}

// httpStatusMap maps Code to HTTP response statuses.
var httpStatusMap = map[Code]int{
	CodeUnknown:        http.StatusInternalServerError,
	CodeInternal:       http.StatusInternalServerError,
	CodeInvalidInput:   http.StatusBadRequest,
	CodeLengthMismatch: http.StatusUnprocessableEntity,
	CodeDecodeFailure:  http.StatusUnsupportedMediaType,
	CodeTooLarge:       http.StatusRequestEntityTooLarge,
	CodeNotFound:       http.StatusNotFound,
	CodeConfigInvalid:  http.StatusInternalServerError,
	CodeUnavailable:    http.StatusServiceUnavailable,
	CodeTimeout:        http.StatusGatewayTimeout,
	CodeCancelled:      499,
	CodeRateLimited:    http.StatusTooManyRequests,
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(": %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an AppError with the same code, so a bare
// &AppError{Code: c} works as a sentinel with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Code == e.Code
}

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// HTTPStatus returns the corresponding HTTP status.
func (e *AppError) HTTPStatus() int {
	if s, ok := httpStatusMap[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Detail converts the error to a protobuf Struct carried as a status detail.
func (e *AppError) Detail() *structpb.Struct {
	fields := map[string]any{
		"code":    e.Code.String(),
		"message": e.Message,
	}
	if len(e.Metadata) > 0 {
		md := make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			md[k] = v
		}
		fields["metadata"] = md
	}
	if e.Cause != nil {
		fields["cause"] = e.Cause.Error()
	}
	detail, err := structpb.NewStruct(fields)
	if err != nil {
		return &structpb.Struct{}
	}
	return detail
}

// GRPCStatus returns a gRPC status with the detail attached. grpc's
// status.FromError picks this up automatically when a handler returns an AppError.
func (e *AppError) GRPCStatus() *status.Status {
	st := status.New(e.GRPCCode(), e.Error())
	if withDetail, err := st.WithDetails(e.Detail()); err == nil {
		return withDetail
	}
	return st
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// FromGRPCError extracts an AppError from a gRPC error if present.
func FromGRPCError(err error) *AppError {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return &AppError{Code: CodeUnknown, Message: err.Error(), Cause: err}
	}

	for _, detail := range st.Details() {
		s, ok := detail.(*structpb.Struct)
		if !ok {
			continue
		}
		fields := s.GetFields()
		appErr := &AppError{
			Code:    ParseCode(fields["code"].GetStringValue()),
			Message: fields["message"].GetStringValue(),
		}
		if md := fields["metadata"].GetStructValue(); md != nil {
			for k, v := range md.GetFields() {
				appErr.WithMetadata(k, v.GetStringValue())
			}
		}
		if cause := fields["cause"].GetStringValue(); cause != "" {
			appErr.Cause = stderrors.New(cause)
		}
		return appErr
	}

	// Fallback: map gRPC code to our error code
	return &AppError{Code: grpcToCode(st.Code()), Message: st.Message()}
}

// grpcToCode maps gRPC codes back to our error codes (best effort).
func grpcToCode(c codes.Code) Code {
	switch c {
	case codes.InvalidArgument:
		return CodeInvalidInput
	case codes.NotFound:
		return CodeNotFound
	case codes.Unavailable:
		return CodeUnavailable
	case codes.DeadlineExceeded:
		return CodeTimeout
	case codes.Canceled:
		return CodeCancelled
	case codes.Internal:
		return CodeInternal
	case codes.FailedPrecondition:
		return CodeConfigInvalid
	case codes.ResourceExhausted:
		return CodeRateLimited
	default:
		return CodeUnknown
	}
}

// As finds the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode checks if an error, or anything it wraps, has a specific error code.
func IsCode(err error, code Code) bool {
	if appErr, ok := As(err); ok {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the code of the first AppError in err's chain.
func CodeOf(err error) Code {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeUnknown
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	switch appErr.Code {
	case CodeUnavailable, CodeTimeout, CodeRateLimited:
		return true
	default:
		return false
	}
}
