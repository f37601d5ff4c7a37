// Package errors provides the unified error type for scan-sentry.
// Codes mirror the failure taxonomy of the scan core and map onto gRPC status codes
// so the control service and its clients agree on what went wrong.
package errors

import (
	stderrors "errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Domain is attached to every ErrorInfo detail sent over gRPC.
const Domain = "scansentry"

// Code classifies an AppError.
type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInternal         Code = "INTERNAL"
	CodeUnavailable      Code = "UNAVAILABLE"
	CodePrecondition     Code = "PRECONDITION_FAILED"
	CodeCapture          Code = "CAPTURE_FAILED"
	CodeRecognition      Code = "RECOGNITION_FAILED"
	CodeDispatch         Code = "DISPATCH_FAILED"
	CodeConfigParse      Code = "CONFIG_PARSE"
	CodeConfigMissing    Code = "CONFIG_MISSING"
	CodeProcessLifecycle Code = "PROCESS_LIFECYCLE"
)

// grpcCodeMap maps Code to gRPC status codes.
var grpcCodeMap = map[Code]codes.Code{
	CodeUnknown:          codes.Unknown,
	CodeInternal:         codes.Internal,
	CodeUnavailable:      codes.Unavailable,
	CodePrecondition:     codes.FailedPrecondition,
	CodeCapture:          codes.Unavailable,
	CodeRecognition:      codes.Unavailable,
	CodeDispatch:         codes.Internal,
	CodeConfigParse:      codes.InvalidArgument,
	CodeConfigMissing:    codes.NotFound,
	CodeProcessLifecycle: codes.Internal,
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
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// GRPCStatus returns a gRPC status carrying the code as an ErrorInfo detail.
// status.FromError picks this up, so handlers can return an AppError directly.
func (e *AppError) GRPCStatus() *status.Status {
	st := status.New(e.GRPCCode(), e.Message)
	info := &errdetails.ErrorInfo{
		Reason:   string(e.Code),
		Domain:   Domain,
		Metadata: e.Metadata,
	}
	if withDetail, err := st.WithDetails(info); err == nil {
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

// FromGRPCError rebuilds an AppError from a gRPC error returned by the control service.
func FromGRPCError(err error) *AppError {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return &AppError{Code: CodeUnknown, Message: err.Error(), Cause: err}
	}

	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok && info.GetDomain() == Domain {
			return &AppError{
				Code:     Code(info.GetReason()),
				Message:  st.Message(),
				Metadata: info.GetMetadata(),
			}
		}
	}

	return &AppError{Code: grpcToCode(st.Code()), Message: st.Message()}
}

// grpcToCode maps gRPC codes back to our codes (best effort).
func grpcToCode(c codes.Code) Code {
	switch c {
	case codes.FailedPrecondition:
		return CodePrecondition
	case codes.Unavailable, codes.DeadlineExceeded:
		return CodeUnavailable
	case codes.InvalidArgument:
		return CodeConfigParse
	case codes.NotFound:
		return CodeConfigMissing
	case codes.Internal:
		return CodeInternal
	default:
		return CodeUnknown
	}
}

// CodeOf returns the code of the first AppError in err's chain.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// IsCode checks if an error chain carries a specific error code.
func IsCode(err error, code Code) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsRecoverable reports whether the scan loop should absorb err as one failed iteration.
func IsRecoverable(err error) bool {
	switch CodeOf(err) {
	case CodeCapture, CodeRecognition, CodeDispatch, CodeUnavailable:
		return true
	default:
		return false
	}
}
