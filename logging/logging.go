// Package logging provides a context-carried structured logger for the
// grant core. Flows never own a logger; they pull whatever the surrounding
// server attached to the request context, so log configuration stays with
// the transport layer.
package logging

import "context"

type ctxkey struct {
	logger Logger
}

// With attaches a logger to the context.
//
// This can be used to create logging scopes like so:
//
//	ctx := logging.With(ctx, logger.Named("authorization_code"))
//	token, err := g.Handle(ctx, req)
func With(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, ctxkey{}, &ctxkey{
		logger: logger,
	})
}

// FromContext returns a scoped logger, or a no-op logger if none was
// attached. Callers can always log without a nil check.
func FromContext(ctx context.Context) Logger {
	c, ok := ctx.Value(ctxkey{}).(*ctxkey)
	if ok {
		return c.logger
	}
	return noop{}
}

// Logger provides an abstract logging interface designed around
// uber-go/zap's sugared logger, but is intended to provide interop with
// other libraries.
type Logger interface {
	Debug(args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// Named creates a child logger with the given name.
	Named(name string) Logger

	// With creates a child logger and attaches structured context to it.
	With(field string, value interface{}) Logger
}

type noop struct{}

func (noop) Debug(...interface{})          {}
func (noop) Debugw(string, ...interface{}) {}
func (noop) Info(...interface{})           {}
func (noop) Infow(string, ...interface{})  {}
func (noop) Warn(...interface{})           {}
func (noop) Warnw(string, ...interface{})  {}
func (noop) Error(...interface{})          {}
func (noop) Errorw(string, ...interface{}) {}
func (n noop) Named(string) Logger         { return n }
func (n noop) With(string, interface{}) Logger {
	return n
}
