// Package telemetry reports span timings through the application logger, so
// slow builds and compiles surface without an external collector.
package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/bindle/internal/core/ports"
)

// SlowSpanThreshold is the duration above which a finished span is reported.
const SlowSpanThreshold = 100 * time.Millisecond

// Bridge implements sdktrace.SpanProcessor. Spans that outlive the threshold
// are logged with their parent operation, everything else is dropped.
type Bridge struct {
	logger    ports.Logger
	threshold time.Duration

	mu    sync.Mutex
	names map[trace.SpanID]string
}

// NewBridge creates a Bridge reporting through logger.
func NewBridge(logger ports.Logger, threshold time.Duration) *Bridge {
	return &Bridge{
		logger:    logger,
		threshold: threshold,
		names:     make(map[trace.SpanID]string),
	}
}

// OnStart records the span name so a slow child can be attributed to its
// parent operation when it ends.
func (b *Bridge) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	name := s.Name()
	if p := trace.SpanFromContext(parent); p.SpanContext().IsValid() {
		b.mu.Lock()
		if parentName, ok := b.names[p.SpanContext().SpanID()]; ok {
			name = parentName + " > " + name
		}
		b.mu.Unlock()
	}
	b.mu.Lock()
	b.names[s.SpanContext().SpanID()] = name
	b.mu.Unlock()
}

// OnEnd reports the span when it ran longer than the threshold.
func (b *Bridge) OnEnd(s sdktrace.ReadOnlySpan) {
	id := s.SpanContext().SpanID()
	b.mu.Lock()
	name, ok := b.names[id]
	delete(b.names, id)
	b.mu.Unlock()
	if !ok {
		name = s.Name()
	}

	elapsed := s.EndTime().Sub(s.StartTime())
	if elapsed < b.threshold {
		return
	}
	b.logger.Info(fmt.Sprintf("%s took %s", name, elapsed.Round(time.Millisecond)))
}

// ForceFlush implements sdktrace.SpanProcessor.
func (b *Bridge) ForceFlush(_ context.Context) error {
	return nil
}

// Shutdown implements sdktrace.SpanProcessor.
func (b *Bridge) Shutdown(_ context.Context) error {
	return nil
}

// Setup installs a global tracer provider that feeds spans through a Bridge.
// The returned function shuts the provider down.
func Setup(logger ports.Logger) func(context.Context) error {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(NewBridge(logger, SlowSpanThreshold)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}
