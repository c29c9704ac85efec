// Package instrument wires OpenTelemetry tracing around a pushkit
// client's outbound exchanges: connection dials and auth requests.
//
// The wrappers slot into the client through its Options seams:
//
//	opts := client.DefaultOptions()
//	opts.Dialer = instrument.Dialer(opts.Dialer)
//	opts.Authorizer = instrument.Authorizer(
//	    client.NewEndpointAuthorizer("https://example.com/pusher/auth", nil),
//	)
//
// Spans are created from the global tracer provider unless
// WithTracerProvider overrides it. Configure the provider in main()
// before building the client:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
package instrument

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pushkit-dev/pushkit/pkg/client"
)

// Default tracer name for pushkit spans.
const defaultTracerName = "pushkit"

// Config configures the tracing wrappers.
type Config struct {
	// TracerName is the name of the tracer (default: "pushkit").
	TracerName string

	// TracerProvider supplies the tracer.
	// Default: the global otel provider.
	TracerProvider trace.TracerProvider

	// Attributes are added to every span.
	Attributes []attribute.KeyValue
}

// Option configures the tracing wrappers.
type Option func(*Config)

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		c.TracerProvider = tp
	}
}

// WithAttributes adds attributes to every span.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(c *Config) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

func newTracer(opts []Option) (trace.Tracer, []attribute.KeyValue) {
	config := Config{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	tp := config.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(config.TracerName), config.Attributes
}

// Dialer wraps next so every connection attempt runs inside a
// "pushkit.dial" span carrying the target URL.
func Dialer(next client.Dialer, opts ...Option) client.Dialer {
	tracer, attrs := newTracer(opts)
	return &tracedDialer{next: next, tracer: tracer, attrs: attrs}
}

type tracedDialer struct {
	next   client.Dialer
	tracer trace.Tracer
	attrs  []attribute.KeyValue
}

func (d *tracedDialer) DialContext(ctx context.Context, url string) (client.Conn, error) {
	attrs := append([]attribute.KeyValue{attribute.String("pushkit.url", url)}, d.attrs...)
	ctx, span := d.tracer.Start(ctx, "pushkit.dial",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	conn, err := d.next.DialContext(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return conn, nil
}

// Authorizer wraps next so every channel auth exchange runs inside a
// "pushkit.authorize" span carrying the channel and socket identity.
func Authorizer(next client.Authorizer, opts ...Option) client.Authorizer {
	tracer, attrs := newTracer(opts)
	return &tracedAuthorizer{next: next, tracer: tracer, attrs: attrs}
}

type tracedAuthorizer struct {
	next   client.Authorizer
	tracer trace.Tracer
	attrs  []attribute.KeyValue
}

func (a *tracedAuthorizer) Authorize(ctx context.Context, socketID, channel string) (*client.AuthResponse, error) {
	attrs := append([]attribute.KeyValue{
		attribute.String("pushkit.channel", channel),
		attribute.String("pushkit.socket_id", socketID),
	}, a.attrs...)
	ctx, span := a.tracer.Start(ctx, "pushkit.authorize",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	resp, err := a.next.Authorize(ctx, socketID, channel)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// UserAuthorizer wraps next so every signin exchange runs inside a
// "pushkit.signin" span.
func UserAuthorizer(next client.UserAuthorizer, opts ...Option) client.UserAuthorizer {
	tracer, attrs := newTracer(opts)
	return &tracedUserAuthorizer{next: next, tracer: tracer, attrs: attrs}
}

type tracedUserAuthorizer struct {
	next   client.UserAuthorizer
	tracer trace.Tracer
	attrs  []attribute.KeyValue
}

func (a *tracedUserAuthorizer) AuthorizeUser(ctx context.Context, socketID string) (*client.UserAuthResponse, error) {
	attrs := append([]attribute.KeyValue{
		attribute.String("pushkit.socket_id", socketID),
	}, a.attrs...)
	ctx, span := a.tracer.Start(ctx, "pushkit.signin",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	resp, err := a.next.AuthorizeUser(ctx, socketID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return resp, nil
}
