package otel

import (
	"context"
	"log/slog"

	"github.com/corray333/backend-labs/ordering/internal/jaeger"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

type OtelController struct {
	traceProvider *sdktrace.TracerProvider
}

// MustInitOtel installs the global tracer provider and the W3C trace context
// propagator used across HTTP calls and RabbitMQ messages. Spans are exported
// to Jaeger unless otel.enabled is false.
func MustInitOtel(service string) *OtelController {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(service),
		)),
	}

	if viper.GetBool("otel.enabled") {
		endpoint := viper.GetString("otel.jaeger_endpoint")
		opts = append(opts, sdktrace.WithBatcher(jaeger.MustNewJaeger(endpoint)))
		slog.Info("Tracing enabled", "endpoint", endpoint)
	}

	tp := sdktrace.NewTracerProvider(opts...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &OtelController{
		traceProvider: tp,
	}
}

func (o *OtelController) Shutdown() error {
	if err := o.traceProvider.Shutdown(context.Background()); err != nil {
		return err
	}

	return nil
}
