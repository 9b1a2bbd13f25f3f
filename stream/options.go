package stream

import (
	"context"
	"io"
	"log/slog"
)

// Option configures a Pipeline.
type Option func(*options)

type options struct {
	ctx     context.Context
	logger  *slog.Logger
	metrics *Metrics
	closer  io.Closer
}

func newOptions(opts []Option) options {
	o := options{ctx: context.Background()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// WithContext stops the pipeline when ctx is done. The cancellation is
// reported by Err.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// WithLogger enables logging. Record faults are logged at debug level and a
// fatal stop at error level. A nil logger disables logging (the default).
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithMetrics records pipeline activity in m.
func WithMetrics(m *Metrics) Option { return func(o *options) { o.metrics = m } }

// WithCloser closes c when the pipeline ends.
func WithCloser(c io.Closer) Option { return func(o *options) { o.closer = c } }
