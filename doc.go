// Package dbtrigger declares serverless functions that react to changes
// in a hierarchical key-value database.
//
// Triggers are declared with path templates like "users/{uid}/posts/{postId}".
// At declaration time a template compiles into an exact, machine-checkable
// endpoint manifest for the deployment tooling; at invocation time the
// incoming change notification is matched against the same template to
// recover the captured path variables for the handler.
//
// # Quick Start
//
// Declare a handler for a path template:
//
//	type Post struct {
//	    Title  string `json:"title"`
//	    Author string `json:"author"`
//	}
//
//	fn, err := dbtrigger.OnValueCreated("users/{uid}/posts/{postId}",
//	    func(ctx context.Context, e *dbtrigger.Event[Post]) error {
//	        fmt.Printf("user %s posted %q\n", e.Params["uid"], e.After.Title)
//	        return nil
//	    })
//
// The returned Function carries the deployment manifest and the runtime
// entry point:
//
//	fn.Endpoint()        // manifest fragment for the deployment tool
//	fn.Run(ctx, raw)     // decode a raw envelope and invoke the handler
//	fn.Handle(ctx, evt)  // invoke the handler directly (local testing)
//
// # Path Patterns
//
// Templates are slash-separated. A literal component matches itself, *
// matches any single component, {name} matches any single component and
// captures it, ** matches zero or more contiguous components, and
// {name=**} captures the joined span it matches. At most one ** or
// {name=**} may appear per template; leading and trailing slashes are
// ignored.
//
//	users/{uid}              matches users/alice        → {uid: alice}
//	users/*/posts/{id}       matches users/x/posts/7    → {id: 7}
//	logs/{rest=**}           matches logs/a/b/c         → {rest: a/b/c}
//
// # Event Types
//
// Four constructors select what kind of mutation fires the trigger:
// OnValueCreated, OnValueUpdated, OnValueDeleted, and OnValueWritten
// (any mutation, as a single registered trigger). They differ only in
// the event type constant placed in the manifest and in how the typed
// event's Before/After snapshots are shaped.
//
// # Deployment Manifest
//
// Each function's Endpoint describes its trigger for external tooling:
// platform, optional regions, labels, pass-through deployment knobs, and
// the event trigger with its filters. A literal instance selector
// becomes an exact-match filter under eventFilters; a selector with
// wildcard or capture syntax becomes a pattern filter under
// eventFilterPathPatterns. The resource path is always a pattern filter.
//
// Deployment options may be supplied as a bare path string, a typed
// ReferenceOptions value, or a raw map loaded from a YAML/JSON file with
// OptionsFromFile.
//
// # Registry
//
// Registry routes raw change events to registered functions using the
// same filters their manifests declare:
//
//	r := dbtrigger.NewRegistry()
//	r.Add("newpost", fn)
//
//	err := r.Process(ctx, rawEventBytes)
//
//	manifest, err := r.Manifest() // full deployment manifest, JSON
//
// # Hooks
//
// Registry hooks provide observability without coupling to a specific
// logging or metrics system:
//
//	r := dbtrigger.NewRegistry(
//	    dbtrigger.WithLogger(slog.Default()),
//	    dbtrigger.WithOnSuccess(func(ctx context.Context, name string, d time.Duration) {
//	        metrics.Timing("trigger.success", d, "function:"+name)
//	    }),
//	    dbtrigger.WithOnNoFunction(func(ctx context.Context, raw []byte) error {
//	        return nil // skip unroutable events
//	    }),
//	)
//
// # Thread Safety
//
// Patterns, endpoints, and functions are immutable after construction
// and safe to share across goroutines. Registry is safe for concurrent
// use after configuration; do not call Add after calling Process.
// Handler errors are never intercepted: they propagate to the invoking
// host exactly as produced.
package dbtrigger
