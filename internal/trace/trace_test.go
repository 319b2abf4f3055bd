package trace

import (
	"context"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestIDFormat(t *testing.T) {
	tc := New()
	if len(tc.TraceID) != 32 {
		t.Errorf("trace ID should be 32 chars, got %d", len(tc.TraceID))
	}
	if len(tc.SpanID) != 16 {
		t.Errorf("span ID should be 16 chars, got %d", len(tc.SpanID))
	}
	if _, err := hex.DecodeString(tc.TraceID); err != nil {
		t.Errorf("trace ID %q is not hex", tc.TraceID)
	}
	if tc.ParentSpanID != "" {
		t.Error("new context should not have parent span ID")
	}
}

func TestIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := New().TraceID
		if seen[id] {
			t.Error("generated duplicate trace ID")
		}
		seen[id] = true
	}
}

func TestNewChild(t *testing.T) {
	parent := New()
	child := NewChild(parent)

	if child.TraceID != parent.TraceID {
		t.Error("child should inherit trace ID")
	}
	if child.SpanID == parent.SpanID {
		t.Error("child should have new span ID")
	}
	if child.ParentSpanID != parent.SpanID {
		t.Error("child's parent should be parent's span ID")
	}

	if root := NewChild(Context{}); root.IsZero() || root.ParentSpanID != "" {
		t.Errorf("child of empty context = %+v, want fresh root", root)
	}
}

func TestContextPropagation(t *testing.T) {
	tc := New()
	ctx := WithContext(context.Background(), tc)

	got, ok := FromContext(ctx)
	if !ok || got != tc {
		t.Errorf("FromContext = %+v, %v; want %+v", got, ok, tc)
	}

	if _, ok := FromContext(context.Background()); ok {
		t.Error("should not find trace context in empty context")
	}
}

func TestEnsureContext(t *testing.T) {
	ctx, tc := EnsureContext(context.Background())
	if tc.IsZero() {
		t.Fatal("EnsureContext should create a trace")
	}
	_, again := EnsureContext(ctx)
	if again != tc {
		t.Error("EnsureContext should keep an existing trace")
	}
}

func TestMapRoundTrip(t *testing.T) {
	caller := New()
	callee := FromMap(caller.ToMap())

	if callee.TraceID != caller.TraceID {
		t.Error("trace ID should survive propagation")
	}
	if callee.ParentSpanID != caller.SpanID {
		t.Error("caller span should become parent")
	}

	fresh := FromMap(map[string]string{SpanIDKey: "abcd"})
	if fresh.TraceID == "" || fresh.ParentSpanID != "" {
		t.Errorf("FromMap without trace = %+v", fresh)
	}
}

func TestSpan(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "batch")
	_, child := StartSpan(ctx, "hash")

	if child.Ctx.TraceID != root.Ctx.TraceID || child.Ctx.ParentSpanID != root.Ctx.SpanID {
		t.Errorf("child span %+v not linked to %+v", child.Ctx, root.Ctx)
	}
	if child.Duration() != 0 {
		t.Error("unfinished span should have zero duration")
	}
	child.SetAttr("path", "a.png")
	child.End()
	if child.EndTime.Before(child.StartTime) {
		t.Error("End should set EndTime")
	}
	if v := child.LogValue(); len(v.Group()) < 5 {
		t.Errorf("LogValue has %d attrs", len(v.Group()))
	}
}

func TestMiddleware(t *testing.T) {
	var seen Context
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceIDKey, "0123456789abcdef0123456789abcdef")
	req.Header.Set(SpanIDKey, "1111222233334444")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen.TraceID != "0123456789abcdef0123456789abcdef" || seen.ParentSpanID != "1111222233334444" {
		t.Errorf("handler context = %+v", seen)
	}
	if got := rec.Header().Get(TraceIDKey); got != seen.TraceID {
		t.Errorf("response %s = %q, want %q", TraceIDKey, got, seen.TraceID)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get(TraceIDKey) == "" {
		t.Error("middleware should start a trace when none is sent")
	}
}

func TestInject(t *testing.T) {
	tc := New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithContext(req.Context(), tc))
	Inject(req)
	if req.Header.Get(TraceIDKey) != tc.TraceID || req.Header.Get(SpanIDKey) != tc.SpanID {
		t.Errorf("headers = %v", req.Header)
	}
}

func TestUnaryClientInterceptor(t *testing.T) {
	tc := New()
	ctx := WithContext(context.Background(), tc)

	var md metadata.MD
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ = metadata.FromOutgoingContext(ctx)
		return nil
	}
	if err := UnaryClientInterceptor()(ctx, "/m", nil, nil, nil, invoker); err != nil {
		t.Fatal(err)
	}
	if got := md.Get(TraceIDKey); len(got) != 1 || got[0] != tc.TraceID {
		t.Errorf("metadata %s = %v, want %s", TraceIDKey, got, tc.TraceID)
	}
}

func TestUnaryServerInterceptor(t *testing.T) {
	caller := New()
	ctx := metadata.NewIncomingContext(context.Background(), metadata.New(caller.ToMap()))

	var seen Context
	handler := func(ctx context.Context, req any) (any, error) {
		seen, _ = FromContext(ctx)
		return "ok", nil
	}
	resp, err := UnaryServerInterceptor()(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/phash.v1.Fingerprinter/Hash"}, handler)
	if err != nil || resp != "ok" {
		t.Fatalf("interceptor = %v, %v", resp, err)
	}
	if seen.TraceID != caller.TraceID || seen.ParentSpanID != caller.SpanID {
		t.Errorf("server context = %+v, caller = %+v", seen, caller)
	}
}
