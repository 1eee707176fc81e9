package dbtrigger

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOptions is returned when a trigger declaration carries an
// unusable reference or options value.
var ErrInvalidOptions = errors.New("invalid reference options")

// ReferenceOptions declares a database trigger together with its
// deployment configuration. Only Ref is required; every other field is
// passed through to the deployment manifest unchanged.
//
// The zero value of an optional field means "not configured" and the
// field is omitted from the manifest. Validation of the configuration
// values themselves (region names, memory sizes) happens in the
// deployment tooling, not here.
type ReferenceOptions struct {
	// Ref is the path template the trigger fires on, e.g.
	// "users/{uid}/posts/{postId}". Wildcards and captures are allowed.
	Ref string

	// Instance restricts the trigger to a database instance. It may be a
	// literal instance name or a pattern. Defaults to "*" (any instance).
	Instance string

	// Region pins the function to one or more regions.
	Region []string

	// Labels are attached to the deployed function.
	Labels map[string]string

	// Remaining fields are deployment knobs interpreted by the host.
	Concurrency     int
	MinInstances    int
	MaxInstances    int
	MemoryMB        int
	TimeoutSeconds  int
	CPU             float64
	VPCConnector    string
	ServiceAccount  string
	IngressSettings string
}

// asMap converts the struct into the raw object shape. Each field is
// copied explicitly so the set of keys that can reach the manifest stays
// auditable in one place.
func (o ReferenceOptions) asMap() map[string]any {
	m := map[string]any{"ref": o.Ref}
	if o.Instance != "" {
		m["instance"] = o.Instance
	}
	if len(o.Region) > 0 {
		m["region"] = o.Region
	}
	if o.Labels != nil {
		m["labels"] = o.Labels
	}
	if o.Concurrency > 0 {
		m["concurrency"] = o.Concurrency
	}
	if o.MinInstances > 0 {
		m["minInstances"] = o.MinInstances
	}
	if o.MaxInstances > 0 {
		m["maxInstances"] = o.MaxInstances
	}
	if o.MemoryMB > 0 {
		m["availableMemoryMb"] = o.MemoryMB
	}
	if o.TimeoutSeconds > 0 {
		m["timeoutSeconds"] = o.TimeoutSeconds
	}
	if o.CPU > 0 {
		m["cpu"] = o.CPU
	}
	if o.VPCConnector != "" {
		m["vpcConnector"] = o.VPCConnector
	}
	if o.ServiceAccount != "" {
		m["serviceAccount"] = o.ServiceAccount
	}
	if o.IngressSettings != "" {
		m["ingressSettings"] = o.IngressSettings
	}
	return m
}

// normalizedOptions is the canonical form every accepted input shape
// reduces to. path and instance are slash-trimmed pattern sources; opts
// holds everything destined for the manifest as-is.
type normalizedOptions struct {
	path     string
	instance string
	opts     map[string]any
}

// normalizeOptions reduces a trigger declaration to canonical form.
//
// Accepted shapes:
//   - string: a bare path template; instance defaults to "*".
//   - ReferenceOptions (or a pointer to one): the typed declaration.
//   - map[string]any: the raw object shape, e.g. loaded from a config
//     file. Its "ref" (or "path") and "instance" keys are consumed; all
//     other keys pass through.
//
// Any other type is a configuration error naming the received shape.
func normalizeOptions(input any) (normalizedOptions, error) {
	switch v := input.(type) {
	case string:
		if strings.Trim(v, "/") == "" {
			return normalizedOptions{}, fmt.Errorf("%w: empty ref", ErrInvalidOptions)
		}
		return normalizedOptions{
			path:     strings.Trim(v, "/"),
			instance: "*",
			opts:     map[string]any{},
		}, nil
	case ReferenceOptions:
		return normalizeMap(v.asMap())
	case *ReferenceOptions:
		if v == nil {
			return normalizedOptions{}, fmt.Errorf("%w: nil options", ErrInvalidOptions)
		}
		return normalizeMap(v.asMap())
	case map[string]any:
		return normalizeMap(v)
	default:
		return normalizedOptions{}, fmt.Errorf("%w: want string or options, got %T", ErrInvalidOptions, input)
	}
}

func normalizeMap(raw map[string]any) (normalizedOptions, error) {
	n := normalizedOptions{
		instance: "*",
		opts:     make(map[string]any, len(raw)),
	}
	for key, val := range raw {
		switch key {
		case "ref", "path":
			s, ok := val.(string)
			if !ok {
				return normalizedOptions{}, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidOptions, key, val)
			}
			n.path = strings.Trim(s, "/")
		case "instance":
			s, ok := val.(string)
			if !ok {
				return normalizedOptions{}, fmt.Errorf("%w: instance must be a string, got %T", ErrInvalidOptions, val)
			}
			if s = strings.Trim(s, "/"); s != "" {
				n.instance = s
			}
		default:
			n.opts[key] = val
		}
	}
	if n.path == "" {
		return normalizedOptions{}, fmt.Errorf("%w: missing ref", ErrInvalidOptions)
	}
	return n, nil
}
