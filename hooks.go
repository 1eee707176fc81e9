package dbtrigger

import (
	"context"
	"log/slog"
	"time"
)

// OnDispatchFunc is called just before a function's Run executes.
type OnDispatchFunc func(ctx context.Context, name, ref string)

// OnSuccessFunc is called after a function completes successfully.
type OnSuccessFunc func(ctx context.Context, name string, duration time.Duration)

// OnFailureFunc is called after a function returns an error.
type OnFailureFunc func(ctx context.Context, name string, err error, duration time.Duration)

// OnNoFunctionFunc is called when no registered function accepts an
// event. Return nil to skip the event, return an error to fail.
type OnNoFunctionFunc func(ctx context.Context, raw []byte) error

// hooks holds all configured hook functions.
type hooks struct {
	onDispatch   []OnDispatchFunc
	onSuccess    []OnSuccessFunc
	onFailure    []OnFailureFunc
	onNoFunction []OnNoFunctionFunc
}

// Option configures a Registry.
type Option func(*Registry)

// WithOnDispatch adds a hook called just before a function executes.
// Multiple hooks are called in order.
//
// Example:
//
//	dbtrigger.WithOnDispatch(func(ctx context.Context, name, ref string) {
//	    metrics.Incr("trigger.dispatch", "function:"+name)
//	})
func WithOnDispatch(fn OnDispatchFunc) Option {
	return func(r *Registry) {
		r.hooks.onDispatch = append(r.hooks.onDispatch, fn)
	}
}

// WithOnSuccess adds a hook called after a function completes
// successfully. Multiple hooks are called in order.
//
// Example:
//
//	dbtrigger.WithOnSuccess(func(ctx context.Context, name string, d time.Duration) {
//	    metrics.Timing("trigger.success", d, "function:"+name)
//	})
func WithOnSuccess(fn OnSuccessFunc) Option {
	return func(r *Registry) {
		r.hooks.onSuccess = append(r.hooks.onSuccess, fn)
	}
}

// WithOnFailure adds a hook called after a function returns an error.
// Multiple hooks are called in order.
func WithOnFailure(fn OnFailureFunc) Option {
	return func(r *Registry) {
		r.hooks.onFailure = append(r.hooks.onFailure, fn)
	}
}

// WithOnNoFunction adds a hook called when no registered function
// accepts an event. Return nil to skip the event, return an error to
// fail. Multiple hooks are called in order; first error wins.
//
// Example:
//
//	dbtrigger.WithOnNoFunction(func(ctx context.Context, raw []byte) error {
//	    logger.Warn("unroutable event")
//	    return nil // skip
//	})
func WithOnNoFunction(fn OnNoFunctionFunc) Option {
	return func(r *Registry) {
		r.hooks.onNoFunction = append(r.hooks.onNoFunction, fn)
	}
}

// WithLogger sets a structured logger for registry diagnostics. Logging
// is purely operational: it has no effect on routing or match results.
// A nil logger disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}
