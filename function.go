package dbtrigger

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Event is the typed view of a change notification delivered to a
// handler. The type parameter T is the shape of the value stored at the
// matched ref.
//
// Before and After are the value at the ref before and after the change.
// Before is nil for created events; After is nil for deleted events. For
// written events either side may be nil depending on the mutation kind.
type Event[T any] struct {
	// ID, Source, Type and Time are copied from the event envelope.
	ID     string
	Source string
	Type   string
	Time   time.Time

	// Ref is the concrete path that changed; Instance identifies the
	// database partition it changed in.
	Ref      string
	Instance string
	Location string

	// Params holds the values captured by the trigger's path template,
	// e.g. {"uid": "alice"} for users/{uid} matching users/alice.
	Params Params

	Before *T
	After  *T
}

// HandlerFunc is the user callback invoked for each delivered change.
// Errors returned here propagate to the invoking host unchanged: the
// function never retries, intercepts, or times out the callback.
type HandlerFunc[T any] func(ctx context.Context, event *Event[T]) error

// Function is the deployable unit produced by the On* constructors. It
// carries the endpoint manifest fixed at declaration time and a Run
// entry point that turns raw envelopes into typed events.
//
// Both snapshots (compiled patterns and manifest) are immutable after
// construction, so a Function may serve concurrent invocations without
// synchronization.
type Function[T any] struct {
	eventType string
	ref       *Pattern
	instance  *Pattern
	endpoint  *Endpoint
	handler   HandlerFunc[T]
}

// OnValueCreated declares a trigger that fires when data is created at a
// path matching the template. refOrOpts is either a bare path template
// string or a ReferenceOptions value.
//
//	fn, err := dbtrigger.OnValueCreated("users/{uid}", func(ctx context.Context, e *dbtrigger.Event[User]) error {
//	    log.Printf("new user %s: %+v", e.Params["uid"], e.After)
//	    return nil
//	})
func OnValueCreated[T any](refOrOpts any, handler HandlerFunc[T]) (*Function[T], error) {
	return newFunction(EventTypeCreated, refOrOpts, handler)
}

// OnValueUpdated declares a trigger that fires when existing data is
// updated at a path matching the template.
func OnValueUpdated[T any](refOrOpts any, handler HandlerFunc[T]) (*Function[T], error) {
	return newFunction(EventTypeUpdated, refOrOpts, handler)
}

// OnValueDeleted declares a trigger that fires when data is deleted at a
// path matching the template.
func OnValueDeleted[T any](refOrOpts any, handler HandlerFunc[T]) (*Function[T], error) {
	return newFunction(EventTypeDeleted, refOrOpts, handler)
}

// OnValueWritten declares a trigger that fires on any mutation (create,
// update, or delete) at a path matching the template, as a single
// registered trigger.
func OnValueWritten[T any](refOrOpts any, handler HandlerFunc[T]) (*Function[T], error) {
	return newFunction(EventTypeWritten, refOrOpts, handler)
}

func newFunction[T any](eventType string, refOrOpts any, handler HandlerFunc[T]) (*Function[T], error) {
	if handler == nil {
		return nil, fmt.Errorf("%w: nil handler", ErrInvalidOptions)
	}
	normalized, err := normalizeOptions(refOrOpts)
	if err != nil {
		return nil, err
	}
	ref, err := CompilePattern(normalized.path)
	if err != nil {
		return nil, err
	}
	instance, err := CompilePattern(normalized.instance)
	if err != nil {
		return nil, err
	}
	return &Function[T]{
		eventType: eventType,
		ref:       ref,
		instance:  instance,
		endpoint:  makeEndpoint(eventType, normalized, ref, instance),
		handler:   handler,
	}, nil
}

// Endpoint returns the deployment manifest fragment for this function.
func (f *Function[T]) Endpoint() *Endpoint {
	return f.endpoint
}

// Handle invokes the user callback directly with an already-built typed
// event. Useful for exercising handlers in unit tests without going
// through envelope decoding.
func (f *Function[T]) Handle(ctx context.Context, event *Event[T]) error {
	return f.handler(ctx, event)
}

// Run decodes a raw change envelope, extracts the path parameters, and
// invokes the callback with the typed event. The callback's result is
// returned unchanged.
func (f *Function[T]) Run(ctx context.Context, raw []byte) error {
	env, err := parseEnvelope(raw)
	if err != nil {
		return err
	}
	params, err := makeParams(env, f.ref, f.instance)
	if err != nil {
		return err
	}

	event := &Event[T]{
		ID:       env.ID,
		Source:   env.Source,
		Type:     env.Type,
		Time:     env.Time,
		Ref:      env.Ref,
		Instance: env.Instance,
		Location: env.Location,
		Params:   params,
	}

	before, after := shapeChange(f.eventType, env)
	if present(before) {
		var v T
		if err := json.Unmarshal(before, &v); err != nil {
			return fmt.Errorf("decode before value: %w", err)
		}
		event.Before = &v
	}
	if present(after) {
		var v T
		if err := json.Unmarshal(after, &v); err != nil {
			return fmt.Errorf("decode after value: %w", err)
		}
		event.After = &v
	}

	return f.handler(ctx, event)
}

// shapeChange selects the before/after snapshots for an event type. The
// envelope carries the prior value under data and the change under
// delta; updated and written events expose the post-change value by
// applying the delta over the prior value.
func shapeChange(eventType string, env *envelope) (before, after json.RawMessage) {
	switch eventType {
	case EventTypeCreated:
		return nil, env.Delta
	case EventTypeDeleted:
		return env.Data, nil
	default:
		return env.Data, applyChange(env.Data, env.Delta)
	}
}
