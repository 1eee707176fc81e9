package dbtrigger

import (
	json "github.com/goccy/go-json"
)

// Platform tags every endpoint manifest with the deployment target the
// external tooling expects.
const Platform = "gcfv2"

// Event type constants selected by the On* constructors.
const (
	EventTypeCreated = "google.firebase.database.ref.v1.created"
	EventTypeUpdated = "google.firebase.database.ref.v1.updated"
	EventTypeDeleted = "google.firebase.database.ref.v1.deleted"
	EventTypeWritten = "google.firebase.database.ref.v1.written"
)

// EventTrigger describes how the platform filters change events before
// delivering them to a function. eventFilters holds exact-match
// conditions; eventFilterPathPatterns holds routing-syntax conditions.
// A given field appears under exactly one of the two.
type EventTrigger struct {
	EventType               string            `json:"eventType"`
	EventFilters            map[string]string `json:"eventFilters"`
	EventFilterPathPatterns map[string]string `json:"eventFilterPathPatterns"`
	Retry                   bool              `json:"retry"`
}

// Endpoint is the deployment-time description of a single function.
// Built once at declaration time and never mutated afterwards, so it is
// safe to read concurrently. Field names in the serialized form are
// load-bearing for the deployment tooling.
type Endpoint struct {
	Platform string
	Region   []string
	Labels   map[string]string

	// Options carries the pass-through deployment knobs (concurrency,
	// instance bounds, VPC settings, ...). They are serialized as
	// top-level manifest fields alongside the typed ones.
	Options map[string]any

	EventTrigger EventTrigger
}

// makeEndpoint assembles the manifest fragment for one declared trigger.
// normalized carries the canonical options; ref and instance are the
// compiled patterns for the resource path and instance selector.
func makeEndpoint(eventType string, normalized normalizedOptions, ref, instance *Pattern) *Endpoint {
	ep := &Endpoint{
		Platform: Platform,
		Labels:   map[string]string{},
		Options:  map[string]any{},
	}

	for key, val := range normalized.opts {
		switch key {
		case "region":
			ep.Region = regionList(val)
		case "labels":
			ep.Labels = labelMap(val)
		default:
			ep.Options[key] = val
		}
	}

	trigger := EventTrigger{
		EventType:               eventType,
		EventFilters:            map[string]string{},
		EventFilterPathPatterns: map[string]string{},
		Retry:                   false,
	}

	// A literal instance name is an exact-match filter; anything with
	// wildcard or capture syntax needs the pattern-based filter. Exactly
	// one of the two representations is used.
	if hasRoutingSyntax(instance.String()) {
		trigger.EventFilterPathPatterns["instance"] = instance.String()
	} else {
		trigger.EventFilters["instance"] = instance.String()
	}
	trigger.EventFilterPathPatterns["ref"] = ref.String()

	ep.EventTrigger = trigger
	return ep
}

// regionList normalizes the region option: a single string becomes a
// one-element list, a list is copied, anything else is dropped (the
// configuration validator upstream owns rejecting bad shapes).
func regionList(val any) []string {
	switch r := val.(type) {
	case string:
		return []string{r}
	case []string:
		return append([]string(nil), r...)
	case []any:
		out := make([]string, 0, len(r))
		for _, item := range r {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// labelMap copies the labels option, accepting both the typed and the
// decoded-JSON/YAML map shapes.
func labelMap(val any) map[string]string {
	out := map[string]string{}
	switch l := val.(type) {
	case map[string]string:
		for k, v := range l {
			out[k] = v
		}
	case map[string]any:
		for k, v := range l {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
	}
	return out
}

// MarshalJSON flattens the pass-through options into top-level manifest
// fields next to the typed ones.
func (e *Endpoint) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Options)+4)
	for k, v := range e.Options {
		m[k] = v
	}
	m["platform"] = e.Platform
	if len(e.Region) > 0 {
		m["region"] = e.Region
	}
	m["labels"] = e.Labels
	m["eventTrigger"] = e.EventTrigger
	return json.Marshal(m)
}
