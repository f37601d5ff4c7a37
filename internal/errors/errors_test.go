package errors

import (
	"fmt"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestAppErrorMessage(t *testing.T) {
	err := Wrap(fmt.Errorf("no display"), CodeCapture, "grab failed").WithMetadata("rect", "0,0-10,10")

	s := err.Error()
	for _, want := range []string{"[CAPTURE_FAILED]", "grab failed", "rect", "caused by: no display"} {
		if !strings.Contains(s, want) {
			t.Errorf("Error() = %q, missing %q", s, want)
		}
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	base := New(CodePrecondition, "region not set")
	wrapped := fmt.Errorf("start scan: %w", base)

	if !IsCode(wrapped, CodePrecondition) {
		t.Error("IsCode should see through fmt.Errorf wrapping")
	}
	if IsCode(wrapped, CodeCapture) {
		t.Error("IsCode matched the wrong code")
	}
	if CodeOf(fmt.Errorf("plain")) != CodeUnknown {
		t.Error("CodeOf plain error should be UNKNOWN")
	}
}

func TestGRPCCodeMapping(t *testing.T) {
	tests := []struct {
		code Code
		want codes.Code
	}{
		{CodePrecondition, codes.FailedPrecondition},
		{CodeCapture, codes.Unavailable},
		{CodeRecognition, codes.Unavailable},
		{CodeConfigParse, codes.InvalidArgument},
		{CodeConfigMissing, codes.NotFound},
		{CodeProcessLifecycle, codes.Internal},
		{Code("SOMETHING_ELSE"), codes.Unknown},
	}

	for _, tt := range tests {
		if got := New(tt.code, "x").GRPCCode(); got != tt.want {
			t.Errorf("GRPCCode(%s) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestGRPCRoundTrip(t *testing.T) {
	orig := New(CodePrecondition, "scan already running").WithMetadata("session", "abc")

	st, ok := status.FromError(orig)
	if !ok {
		t.Fatal("status.FromError should recognise AppError")
	}
	if st.Code() != codes.FailedPrecondition {
		t.Errorf("status code = %v, want FailedPrecondition", st.Code())
	}

	back := FromGRPCError(st.Err())
	if back.Code != CodePrecondition {
		t.Errorf("Code = %s, want %s", back.Code, CodePrecondition)
	}
	if back.Message != "scan already running" {
		t.Errorf("Message = %q", back.Message)
	}
	if back.Metadata["session"] != "abc" {
		t.Errorf("Metadata = %v", back.Metadata)
	}
}

func TestFromGRPCErrorFallback(t *testing.T) {
	err := status.Error(codes.Unavailable, "connection refused")
	if got := FromGRPCError(err).Code; got != CodeUnavailable {
		t.Errorf("Code = %s, want %s", got, CodeUnavailable)
	}

	if got := FromGRPCError(fmt.Errorf("not grpc")).Code; got != CodeUnknown {
		t.Errorf("Code = %s, want %s", got, CodeUnknown)
	}
	if FromGRPCError(nil) != nil {
		t.Error("FromGRPCError(nil) should be nil")
	}
}

func TestIsRecoverable(t *testing.T) {
	if !IsRecoverable(New(CodeCapture, "x")) {
		t.Error("capture errors are recoverable")
	}
	if !IsRecoverable(fmt.Errorf("wrap: %w", New(CodeRecognition, "x"))) {
		t.Error("wrapped recognition errors are recoverable")
	}
	if IsRecoverable(New(CodePrecondition, "x")) {
		t.Error("precondition errors are not recoverable")
	}
}
