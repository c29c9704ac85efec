package instrument

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"

	"github.com/pushkit-dev/pushkit/pkg/client"
)

// recordedSpan captures what the wrappers set on a span.
type recordedSpan struct {
	embedded.Span

	name   string
	kind   trace.SpanKind
	attrs  []attribute.KeyValue
	status codes.Code
	desc   string
	errs   []error
	ended  bool
}

func (s *recordedSpan) End(...trace.SpanEndOption)     { s.ended = true }
func (s *recordedSpan) AddEvent(string, ...trace.EventOption) {}
func (s *recordedSpan) AddLink(trace.Link)             {}
func (s *recordedSpan) IsRecording() bool              { return !s.ended }
func (s *recordedSpan) SpanContext() trace.SpanContext { return trace.SpanContext{} }
func (s *recordedSpan) SetName(name string)            { s.name = name }
func (s *recordedSpan) TracerProvider() trace.TracerProvider {
	return nil
}

func (s *recordedSpan) RecordError(err error, _ ...trace.EventOption) {
	s.errs = append(s.errs, err)
}

func (s *recordedSpan) SetStatus(code codes.Code, desc string) {
	s.status, s.desc = code, desc
}

func (s *recordedSpan) SetAttributes(kv ...attribute.KeyValue) {
	s.attrs = append(s.attrs, kv...)
}

type recordingTracer struct {
	embedded.Tracer

	mu    sync.Mutex
	spans []*recordedSpan
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	s := &recordedSpan{name: name, kind: cfg.SpanKind(), attrs: cfg.Attributes()}
	t.mu.Lock()
	t.spans = append(t.spans, s)
	t.mu.Unlock()
	return trace.ContextWithSpan(ctx, s), s
}

func (t *recordingTracer) single(test *testing.T) *recordedSpan {
	test.Helper()
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.spans) != 1 {
		test.Fatalf("recorded %d spans, want 1", len(t.spans))
	}
	return t.spans[0]
}

type recordingProvider struct {
	embedded.TracerProvider

	tracer *recordingTracer
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return p.tracer
}

func newRecorder() (*recordingProvider, *recordingTracer) {
	tracer := &recordingTracer{}
	return &recordingProvider{tracer: tracer}, tracer
}

func attrString(attrs []attribute.KeyValue, key string) (string, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value.AsString(), true
		}
	}
	return "", false
}

type nopConn struct{}

func (nopConn) ReadMessage() ([]byte, error)    { return nil, io.EOF }
func (nopConn) WriteMessage([]byte) error       { return nil }
func (nopConn) SetReadDeadline(time.Time) error { return nil }
func (nopConn) SetReadLimit(int64)              {}
func (nopConn) Close() error                    { return nil }

type dialerFunc func(ctx context.Context, url string) (client.Conn, error)

func (f dialerFunc) DialContext(ctx context.Context, url string) (client.Conn, error) {
	return f(ctx, url)
}

func TestDialerSpan(t *testing.T) {
	provider, tracer := newRecorder()
	d := Dialer(dialerFunc(func(ctx context.Context, url string) (client.Conn, error) {
		return nopConn{}, nil
	}), WithTracerProvider(provider))

	if _, err := d.DialContext(context.Background(), "wss://ws.example.com/app/key"); err != nil {
		t.Fatalf("DialContext() error = %v", err)
	}

	span := tracer.single(t)
	if span.name != "pushkit.dial" {
		t.Errorf("span name = %q, want %q", span.name, "pushkit.dial")
	}
	if span.kind != trace.SpanKindClient {
		t.Errorf("span kind = %v, want SpanKindClient", span.kind)
	}
	if got, ok := attrString(span.attrs, "pushkit.url"); !ok || got != "wss://ws.example.com/app/key" {
		t.Errorf("pushkit.url attr = (%q, %v)", got, ok)
	}
	if span.status != codes.Ok {
		t.Errorf("span status = %v, want Ok", span.status)
	}
	if !span.ended {
		t.Error("span never ended")
	}
}

func TestDialerSpanError(t *testing.T) {
	provider, tracer := newRecorder()
	dialErr := errors.New("connection refused")
	d := Dialer(dialerFunc(func(ctx context.Context, url string) (client.Conn, error) {
		return nil, dialErr
	}), WithTracerProvider(provider))

	if _, err := d.DialContext(context.Background(), "wss://ws.example.com/app/key"); !errors.Is(err, dialErr) {
		t.Fatalf("DialContext() error = %v, want the dial error", err)
	}

	span := tracer.single(t)
	if span.status != codes.Error {
		t.Errorf("span status = %v, want Error", span.status)
	}
	if len(span.errs) != 1 || !errors.Is(span.errs[0], dialErr) {
		t.Errorf("recorded errors = %v, want the dial error", span.errs)
	}
	if !span.ended {
		t.Error("span never ended")
	}
}

func TestAuthorizerSpan(t *testing.T) {
	provider, tracer := newRecorder()
	a := Authorizer(client.AuthorizerFunc(func(ctx context.Context, socketID, channel string) (*client.AuthResponse, error) {
		return &client.AuthResponse{Auth: "key:sig"}, nil
	}), WithTracerProvider(provider))

	if _, err := a.Authorize(context.Background(), "1.2", "private-orders"); err != nil {
		t.Fatalf("Authorize() error = %v", err)
	}

	span := tracer.single(t)
	if span.name != "pushkit.authorize" {
		t.Errorf("span name = %q, want %q", span.name, "pushkit.authorize")
	}
	if got, _ := attrString(span.attrs, "pushkit.channel"); got != "private-orders" {
		t.Errorf("pushkit.channel attr = %q", got)
	}
	if got, _ := attrString(span.attrs, "pushkit.socket_id"); got != "1.2" {
		t.Errorf("pushkit.socket_id attr = %q", got)
	}
	if span.status != codes.Ok {
		t.Errorf("span status = %v, want Ok", span.status)
	}
}

func TestAuthorizerSpanError(t *testing.T) {
	provider, tracer := newRecorder()
	a := Authorizer(client.AuthorizerFunc(func(ctx context.Context, socketID, channel string) (*client.AuthResponse, error) {
		return nil, errors.New("forbidden")
	}), WithTracerProvider(provider))

	if _, err := a.Authorize(context.Background(), "1.2", "private-orders"); err == nil {
		t.Fatal("Authorize() error = nil, want the auth error")
	}
	if span := tracer.single(t); span.status != codes.Error {
		t.Errorf("span status = %v, want Error", span.status)
	}
}

type userAuthorizerFunc func(ctx context.Context, socketID string) (*client.UserAuthResponse, error)

func (f userAuthorizerFunc) AuthorizeUser(ctx context.Context, socketID string) (*client.UserAuthResponse, error) {
	return f(ctx, socketID)
}

func TestUserAuthorizerSpan(t *testing.T) {
	provider, tracer := newRecorder()
	a := UserAuthorizer(userAuthorizerFunc(func(ctx context.Context, socketID string) (*client.UserAuthResponse, error) {
		return &client.UserAuthResponse{Auth: "key:sig", UserData: "{}"}, nil
	}), WithTracerProvider(provider))

	if _, err := a.AuthorizeUser(context.Background(), "3.4"); err != nil {
		t.Fatalf("AuthorizeUser() error = %v", err)
	}

	span := tracer.single(t)
	if span.name != "pushkit.signin" {
		t.Errorf("span name = %q, want %q", span.name, "pushkit.signin")
	}
	if got, _ := attrString(span.attrs, "pushkit.socket_id"); got != "3.4" {
		t.Errorf("pushkit.socket_id attr = %q", got)
	}
}

func TestWithAttributes(t *testing.T) {
	provider, tracer := newRecorder()
	d := Dialer(dialerFunc(func(ctx context.Context, url string) (client.Conn, error) {
		return nopConn{}, nil
	}), WithTracerProvider(provider), WithAttributes(attribute.String("deployment", "prod")))

	if _, err := d.DialContext(context.Background(), "wss://h/app/k"); err != nil {
		t.Fatalf("DialContext() error = %v", err)
	}
	if got, ok := attrString(tracer.single(t).attrs, "deployment"); !ok || got != "prod" {
		t.Errorf("deployment attr = (%q, %v), want prod", got, ok)
	}
}
