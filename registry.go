package dbtrigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
)

// Runner is the deployable unit held by a Registry: anything carrying an
// endpoint manifest and a raw-event entry point. Function satisfies it.
type Runner interface {
	Endpoint() *Endpoint
	Run(ctx context.Context, raw []byte) error
}

// ErrDuplicateFunction is returned by Add when a function name is
// already registered.
var ErrDuplicateFunction = errors.New("function already registered")

// Registry holds declared functions by endpoint name and routes raw
// change events to them using the same filters the deployment manifest
// declares.
//
// Usage:
//  1. Create a registry with NewRegistry
//  2. Add declared functions with Add
//  3. Route incoming events with Process
//  4. Export the deployment manifest with Manifest
//
// Registry is safe for concurrent use after configuration. Do not call
// Add after calling Process.
type Registry struct {
	entries []entry
	names   map[string]struct{}
	hooks   hooks
	logger  *slog.Logger
}

// entry caches the compiled trigger filters for one registered function
// so Process matches against exactly what the manifest declares.
type entry struct {
	name            string
	fn              Runner
	eventType       string
	ref             *Pattern
	instanceLiteral string   // exact-match filter; empty when pattern-based
	instance        *Pattern // pattern filter; nil when literal
}

// NewRegistry creates a Registry with the given options.
//
// Example:
//
//	r := dbtrigger.NewRegistry(
//	    dbtrigger.WithLogger(slog.Default()),
//	    dbtrigger.WithOnFailure(func(ctx context.Context, name string, err error, d time.Duration) {
//	        metrics.Incr("trigger.failure", "function:"+name)
//	    }),
//	)
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{names: make(map[string]struct{})}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Add registers a function under an endpoint name. The trigger filters
// are compiled from the function's own manifest, so routing and
// deployment can never disagree.
func (r *Registry) Add(name string, fn Runner) error {
	if _, ok := r.names[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFunction, name)
	}

	ep := fn.Endpoint()
	trigger := ep.EventTrigger

	refSource, ok := trigger.EventFilterPathPatterns["ref"]
	if !ok {
		return fmt.Errorf("%w: endpoint %s has no ref filter", ErrInvalidOptions, name)
	}
	ref, err := CompilePattern(refSource)
	if err != nil {
		return err
	}

	e := entry{name: name, fn: fn, eventType: trigger.EventType, ref: ref}
	if source, ok := trigger.EventFilterPathPatterns["instance"]; ok {
		instance, err := CompilePattern(source)
		if err != nil {
			return err
		}
		e.instance = instance
	} else {
		e.instanceLiteral = trigger.EventFilters["instance"]
	}

	r.names[name] = struct{}{}
	r.entries = append(r.entries, e)
	return nil
}

// Process routes a raw change event to the first registered function
// whose trigger filters accept it and returns the function's error
// unchanged.
//
// The routing flow:
//  1. Cheap field checks confirm the payload is a change envelope
//  2. The envelope is decoded
//  3. Registered functions are tried in registration order; a function
//     matches when its event type, instance filter, and ref pattern all
//     accept the envelope
//  4. The matched function's Run executes with the original raw bytes
//
// Hooks are called at the appropriate points throughout this flow.
func (r *Registry) Process(ctx context.Context, raw []byte) error {
	if !isChangeEvent(raw) {
		return r.handleNoFunction(ctx, raw)
	}
	env, err := parseEnvelope(raw)
	if err != nil {
		return err
	}

	match := r.match(env)
	if match == nil {
		if r.logger != nil {
			r.logger.Warn("no function matched event",
				slog.String("type", env.Type),
				slog.String("ref", env.Ref),
				slog.String("instance", env.Instance),
			)
		}
		return r.handleNoFunction(ctx, raw)
	}

	for _, fn := range r.hooks.onDispatch {
		fn(ctx, match.name, env.Ref)
	}
	if r.logger != nil {
		r.logger.Debug("dispatching change event",
			slog.String("function", match.name),
			slog.String("ref", env.Ref),
		)
	}

	start := time.Now()
	err = match.fn.Run(ctx, raw)
	duration := time.Since(start)

	if err != nil {
		for _, fn := range r.hooks.onFailure {
			fn(ctx, match.name, err, duration)
		}
		if r.logger != nil {
			r.logger.Error("function failed",
				slog.String("function", match.name),
				slog.String("error", err.Error()),
				slog.Duration("duration", duration),
			)
		}
		return err
	}

	for _, fn := range r.hooks.onSuccess {
		fn(ctx, match.name, duration)
	}
	return nil
}

// match finds the first entry whose trigger filters accept the envelope.
func (r *Registry) match(env *envelope) *entry {
	for i := range r.entries {
		e := &r.entries[i]
		if e.eventType != env.Type {
			continue
		}
		if e.instance != nil {
			if _, ok := e.instance.Match(env.Instance); !ok {
				continue
			}
		} else if e.instanceLiteral != env.Instance {
			continue
		}
		if _, ok := e.ref.Match(env.Ref); !ok {
			continue
		}
		return e
	}
	return nil
}

// handleNoFunction handles events no registered function accepts.
func (r *Registry) handleNoFunction(ctx context.Context, raw []byte) error {
	for _, fn := range r.hooks.onNoFunction {
		if err := fn(ctx, raw); err != nil {
			return err
		}
	}
	if len(r.hooks.onNoFunction) > 0 {
		return nil
	}
	return fmt.Errorf("no function matched event")
}

// manifestSpecVersion tags the manifest schema for the deployment tool.
const manifestSpecVersion = "v1alpha1"

// Manifest serializes the deployment manifest for every registered
// function, keyed by endpoint name, for consumption by external
// deployment tooling.
func (r *Registry) Manifest() ([]byte, error) {
	type manifest struct {
		SpecVersion string               `json:"specVersion"`
		Endpoints   map[string]*Endpoint `json:"endpoints"`
	}
	m := manifest{
		SpecVersion: manifestSpecVersion,
		Endpoints:   make(map[string]*Endpoint, len(r.entries)),
	}
	for _, e := range r.entries {
		m.Endpoints[e.name] = e.fn.Endpoint()
	}
	return json.MarshalIndent(m, "", "  ")
}
