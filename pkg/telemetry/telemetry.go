// Package telemetry sets up OpenTelemetry tracing for agent turns, tool
// calls and orchestrator broadcasts.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/sweetpotato0/pinecone/pkg/logging"
)

const (
	defaultServiceName = "pinecone"
	flushTimeout       = 5 * time.Second
)

// Config selects the span exporter and sampling.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Disable        bool
	// Endpoint is the OTLP gRPC collector; OTEL_EXPORTER_OTLP_ENDPOINT is
	// used when empty. With neither, spans are printed to Output.
	Endpoint string
	// Output receives pretty-printed spans when no collector is set.
	// Defaults to stderr so the REPL stays readable.
	Output io.Writer
	// SampleRatio in (0,1) samples that fraction of root traces; anything
	// else samples everything.
	SampleRatio float64
	Logger      *slog.Logger
}

// ShutdownFunc flushes pending spans.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init installs the global tracer provider.
func Init(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	if cfg.Disable {
		return noopShutdown, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.WithComponent("telemetry")
	}

	exp, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}
	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(cfg.SampleRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, flushTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			cfg.Logger.Error("telemetry shutdown failed", "error", err)
			return err
		}
		return nil
	}, nil
}

// Sampler samples ratio of root traces when 0 < ratio < 1, otherwise all of
// them. Child spans follow their parent.
func Sampler(ratio float64) sdktrace.Sampler {
	if ratio > 0 && ratio < 1 {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
	return sdktrace.ParentBased(sdktrace.AlwaysSample())
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceNameKey.String(cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersionKey.String(cfg.ServiceVersion))
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create resource: %w", err)
	}
	return res, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if endpoint == "" {
		out := cfg.Output
		if out == nil {
			out = os.Stderr
		}
		cfg.Logger.Info("no OTLP endpoint, printing spans")
		return stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
	}

	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create OTLP exporter: %w", err)
	}
	cfg.Logger.Info("OTLP trace exporter configured", "endpoint", endpoint)
	return exp, nil
}

// Tracer returns a named tracer from the global provider. Until Init runs
// the provider is a no-op.
func Tracer(component string) trace.Tracer {
	return otel.Tracer("pinecone/" + component)
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
