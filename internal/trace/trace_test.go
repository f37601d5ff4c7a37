package trace

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestIDSizes(t *testing.T) {
	tc := New()
	if len(tc.TraceID) != 32 {
		t.Errorf("trace ID should be 32 hex chars, got %d", len(tc.TraceID))
	}
	if len(tc.SpanID) != 16 {
		t.Errorf("span ID should be 16 hex chars, got %d", len(tc.SpanID))
	}
	if tc.ParentSpanID != "" {
		t.Error("root context should not have a parent span")
	}
}

func TestIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newTraceID()
		if seen[id] {
			t.Fatal("generated duplicate trace ID")
		}
		seen[id] = true
	}
}

func TestFromID(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	tc := FromID(id)
	if tc.TraceID != strings.ReplaceAll(id.String(), "-", "") {
		t.Errorf("TraceID = %q, want session uuid without dashes", tc.TraceID)
	}
}

func TestNewChild(t *testing.T) {
	parent := New()
	child := NewChild(parent)

	if child.TraceID != parent.TraceID {
		t.Error("child should inherit trace ID")
	}
	if child.SpanID == parent.SpanID {
		t.Error("child should have a new span ID")
	}
	if child.ParentSpanID != parent.SpanID {
		t.Error("child's parent should be the parent's span ID")
	}
}

func TestEnsureContext(t *testing.T) {
	ctx, tc := EnsureContext(context.Background())
	if len(tc.TraceID) != 32 {
		t.Error("should create a trace ID")
	}
	if _, tc2 := EnsureContext(ctx); tc2.TraceID != tc.TraceID {
		t.Error("should return the existing trace")
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Error("empty context should carry no trace")
	}
}

func TestMapRoundTrip(t *testing.T) {
	caller := Context{TraceID: "trace123", SpanID: "span456", ParentSpanID: "parent789"}
	m := caller.ToMap()
	if m[ParentSpanIDKey] != "parent789" {
		t.Error("ToMap should include the parent span")
	}

	callee := FromMap(m)
	if callee.TraceID != "trace123" {
		t.Error("trace ID mismatch")
	}
	if callee.ParentSpanID != "span456" {
		t.Error("caller's span should become the parent")
	}
	if len(FromMap(nil).TraceID) != 32 {
		t.Error("missing trace ID should be generated")
	}
}

func TestSpanNested(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "scan_session")
	_, child := StartSpan(ctx, "iteration")

	if child.Ctx.TraceID != parent.Ctx.TraceID {
		t.Error("child should inherit trace ID")
	}
	if child.Ctx.ParentSpanID != parent.Ctx.SpanID {
		t.Error("child's parent should be the parent span")
	}

	child.SetAttr("scan", 3)
	if child.Duration() != 0 {
		t.Error("open span should report zero duration")
	}
	child.End()
	if child.EndTime.IsZero() || child.Duration() < 0 {
		t.Error("ended span should have an end time")
	}
	if child.Attrs["scan"] != 3 {
		t.Error("span attribute mismatch")
	}
}

func TestUnaryServerInterceptor(t *testing.T) {
	md := metadata.Pairs(TraceIDKey, "abc", SpanIDKey, "def")
	ctx := metadata.NewIncomingContext(context.Background(), md)

	var seen Context
	handler := func(ctx context.Context, req any) (any, error) {
		seen, _ = FromContext(ctx)
		return "ok", nil
	}

	resp, err := UnaryServerInterceptor()(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"}, handler)
	if err != nil || resp != "ok" {
		t.Fatalf("interceptor = (%v, %v)", resp, err)
	}
	if seen.TraceID != "abc" || seen.ParentSpanID != "def" {
		t.Errorf("handler saw %+v, want trace abc with parent def", seen)
	}

	failing := func(context.Context, any) (any, error) { return nil, errors.New("boom") }
	if _, err := UnaryServerInterceptor()(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/Y"}, failing); err == nil {
		t.Error("handler error should pass through")
	}
}

func TestInjectMetadata(t *testing.T) {
	tc := New()
	ctx := injectMetadata(WithContext(context.Background(), tc))
	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("outgoing metadata missing")
	}
	if got := md.Get(TraceIDKey); len(got) != 1 || got[0] != tc.TraceID {
		t.Errorf("trace metadata = %v", got)
	}
}

func TestMiddleware(t *testing.T) {
	var seen Context
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set(TraceIDKey, "from-client")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen.TraceID != "from-client" {
		t.Errorf("handler trace = %q", seen.TraceID)
	}
	if rec.Header().Get(TraceIDKey) != "from-client" {
		t.Error("trace ID should be echoed in the response")
	}
}

func TestExtractFromJSON(t *testing.T) {
	if tc, ok := ExtractFromJSON([]byte(`{"type":"start_scan","trace_id":"t1"}`)); !ok || tc.TraceID != "t1" {
		t.Errorf("ExtractFromJSON = (%+v, %v)", tc, ok)
	}
	if _, ok := ExtractFromJSON([]byte(`not json`)); ok {
		t.Error("invalid JSON should report false")
	}
}

func TestLogger(t *testing.T) {
	Logger(WithContext(context.Background(), New())).Info("test message")
	if Logger(context.Background()) == nil {
		t.Error("Logger without trace should return the default logger")
	}
}
