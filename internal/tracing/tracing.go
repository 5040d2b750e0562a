// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tracing sets up OpenTelemetry spans for launcher sessions.
//
// With the "none" exporter the global no-op provider stays in place and
// span calls cost nothing.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/launcher/internal/config"
)

// InstrumentationName scopes every tracer the launcher creates.
const InstrumentationName = "github.com/tombee/launcher"

// ServiceName is reported as service.name.
const ServiceName = "launcher"

// Provider owns the SDK tracer provider and any file the console
// exporter writes to.
type Provider struct {
	tp     *sdktrace.TracerProvider
	closer io.Closer
}

// Setup builds the exporter named by cfg and installs a tracer provider
// as the global one. The returned provider must be shut down to flush.
func Setup(ctx context.Context, cfg config.TracingConfig, serviceVersion string) (*Provider, error) {
	if cfg.Exporter == "" || cfg.Exporter == config.TracingNone {
		return &Provider{}, nil
	}

	exporter, closer, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	p, err := NewProvider(serviceVersion, sdktrace.WithBatcher(exporter))
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}
	p.closer = closer

	otel.SetTracerProvider(p.tp)
	return p, nil
}

// NewProvider creates a provider with the launcher's resource attributes.
// It does not install itself globally.
func NewProvider(serviceVersion string, opts ...sdktrace.TracerProviderOption) (*Provider, error) {
	// An empty schema URL avoids conflicts when merging with the default resource.
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	allOpts := append([]sdktrace.TracerProviderOption{sdktrace.WithResource(res)}, opts...)
	return &Provider{tp: sdktrace.NewTracerProvider(allOpts...)}, nil
}

// Tracer returns a tracer from this provider, or the global one when
// tracing is disabled.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tp == nil {
		return Tracer()
	}
	return p.tp.Tracer(InstrumentationName)
}

// Shutdown flushes pending spans and releases the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	err := p.tp.Shutdown(ctx)
	if p.closer != nil {
		err = errors.Join(err, p.closer.Close())
	}
	return err
}

// Tracer returns the launcher tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

func openSpanFile(path string) (io.Writer, io.Closer, error) {
	if path == "" {
		return os.Stderr, nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open span file: %w", err)
	}
	return f, f, nil
}
