// Package workflow holds what the lifecycle services share: the clock, the
// logger, tracing and the transactional boundary every mutation runs in.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"PartTimeJob-backend/internal/apperror"
)

// tracerName is the instrumentation scope name for workflow tracing.
const tracerName = "PartTimeJob-backend/internal/workflow"

// Options configures a lifecycle service
type Options struct {
	Now    func() time.Time
	Logger *slog.Logger
	Tracer trace.Tracer
}

// Option mutates Options
type Option func(*Options)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.Now = now }
}

// WithLogger overrides the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithTracer overrides the tracer. The global provider is used otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(o *Options) { o.Tracer = t }
}

// NewOptions applies opts over the defaults
func NewOptions(opts ...Option) Options {
	o := Options{
		Now:    time.Now,
		Logger: slog.Default(),
		Tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Clock returns the current time truncated to microseconds, the precision
// postgres keeps
func (o Options) Clock() time.Time {
	return o.Now().UTC().Truncate(time.Microsecond)
}

// InTx runs fn inside one transaction wrapped in a span named op. Any error
// rolls the transaction back. Errors that are not already typed are reported
// as Internal.
func (o Options) InTx(ctx context.Context, db *gorm.DB, op string, fn func(tx *gorm.DB) error, attrs ...attribute.KeyValue) error {
	return o.Trace(ctx, op, func(ctx context.Context) error {
		return db.WithContext(ctx).Transaction(fn)
	}, attrs...)
}

// Trace runs fn inside a span named op without opening a transaction
func (o Options) Trace(ctx context.Context, op string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := o.Tracer.Start(ctx, op,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		var appErr *apperror.Error
		if !errors.As(err, &appErr) {
			err = apperror.Internal(err, "failed to "+op)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if apperror.KindOf(err) == apperror.KindInternal {
			o.Logger.ErrorContext(ctx, "workflow operation failed", "op", op, "error", err)
		}
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// ForUpdate locks the selected rows until the transaction ends
func ForUpdate() clause.Expression {
	return clause.Locking{Strength: "UPDATE"}
}

// Page is a 1-based page request
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page to sane bounds
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = 20
	}
	if p.Size > 100 {
		p.Size = 100
	}
	return p
}

// Apply adds LIMIT and OFFSET to q
func (p Page) Apply(q *gorm.DB) *gorm.DB {
	p = p.Normalize()
	return q.Limit(p.Size).Offset((p.Number - 1) * p.Size)
}
