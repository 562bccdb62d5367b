package executor

import (
	"context"
	"time"

	"github.com/hupe1980/agentforge/logging"
)

// Span is one traced operation. End must be called exactly once.
type Span interface {
	// SetOutput attaches a short result summary to the span.
	SetOutput(summary string)
	// End closes the span, recording the error if any.
	End(err error)
}

// Tracer opens spans around synchronous planning and media executions.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// NoopTracer discards all spans.
type NoopTracer struct{}

// StartSpan implements Tracer.
func (NoopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) SetOutput(string) {}
func (noopSpan) End(error)        {}

// LogTracer records spans as structured log entries. It is the default
// tracer wired by the facade.
type LogTracer struct {
	Logger logging.Logger
}

// StartSpan implements Tracer.
func (t LogTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	return ctx, &logSpan{logger: t.Logger, name: name, started: time.Now()}
}

type logSpan struct {
	logger  logging.Logger
	name    string
	started time.Time
	output  string
}

func (s *logSpan) SetOutput(summary string) { s.output = summary }

func (s *logSpan) End(err error) {
	if err != nil {
		s.logger.Error("span finished", "span", s.name, "duration", time.Since(s.started), "error", err)
		return
	}
	s.logger.Info("span finished", "span", s.name, "duration", time.Since(s.started), "output", s.output)
}
