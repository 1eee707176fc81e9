package dbtrigger

import (
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned when a raw event payload is not valid JSON.
var ErrInvalidJSON = errors.New("invalid JSON")

// ErrRefMismatch is returned when a delivered event's ref does not match
// the trigger's resource pattern. The platform only delivers events that
// passed the deployed filters, so this indicates a misconfigured filter
// rather than a normal runtime state.
var ErrRefMismatch = errors.New("event ref does not match trigger pattern")

// envelope is the decoded form of a raw change notification.
type envelope struct {
	ID          string
	Source      string
	SpecVersion string
	Type        string
	Time        time.Time
	Ref         string
	Instance    string
	Location    string
	Data        json.RawMessage // value before the change
	Delta       json.RawMessage // change applied at the ref
}

// isChangeEvent reports whether raw looks like a database change
// envelope. Cheap field checks before full decoding, so callers routing
// mixed event streams can probe without parsing everything.
func isChangeEvent(raw []byte) bool {
	if !gjson.ValidBytes(raw) {
		return false
	}
	return gjson.GetBytes(raw, "ref").Exists() &&
		gjson.GetBytes(raw, "instance").Exists()
}

// parseEnvelope decodes a raw change notification.
func parseEnvelope(raw []byte) (*envelope, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("parse envelope: %w", ErrInvalidJSON)
	}
	var wire struct {
		ID          string    `json:"id"`
		Source      string    `json:"source"`
		SpecVersion string    `json:"specversion"`
		Type        string    `json:"type"`
		Time        time.Time `json:"time"`
		Ref         string    `json:"ref"`
		Instance    string    `json:"instance"`
		Location    string    `json:"location"`
		Data        struct {
			Data  json.RawMessage `json:"data"`
			Delta json.RawMessage `json:"delta"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	return &envelope{
		ID:          wire.ID,
		Source:      wire.Source,
		SpecVersion: wire.SpecVersion,
		Type:        wire.Type,
		Time:        wire.Time,
		Ref:         wire.Ref,
		Instance:    wire.Instance,
		Location:    wire.Location,
		Data:        wire.Data.Data,
		Delta:       wire.Data.Delta,
	}, nil
}

// makeParams merges captures from the resource-path and instance
// patterns into one parameter map for a single event. Instance-derived
// captures are applied last, so on a name collision the instance value
// wins.
func makeParams(env *envelope, ref, instance *Pattern) (Params, error) {
	params, ok := ref.Match(env.Ref)
	if !ok {
		return nil, fmt.Errorf("ref %q vs pattern %q: %w", env.Ref, ref, ErrRefMismatch)
	}
	if captured, ok := instance.Match(env.Instance); ok {
		for name, val := range captured {
			params[name] = val
		}
	}
	return params, nil
}

// present reports whether a raw JSON snapshot carries a value. The
// envelope encodes "no value" as an absent field or JSON null.
func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// applyChange merges a delta over a base value the way the database
// applies a write: an object delta merges key by key with null entries
// deleting, any other delta replaces the base wholesale.
func applyChange(base, delta json.RawMessage) json.RawMessage {
	var d any
	if err := json.Unmarshal(delta, &d); err != nil {
		return delta
	}
	dm, ok := d.(map[string]any)
	if !ok {
		return delta
	}

	var b any
	_ = json.Unmarshal(base, &b)
	bm, _ := b.(map[string]any)

	merged := mergeChange(bm, dm)
	if len(merged) == 0 {
		return json.RawMessage("null")
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return delta
	}
	return out
}

func mergeChange(base, delta map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(delta))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range delta {
		switch dv := v.(type) {
		case nil:
			delete(out, k)
		case map[string]any:
			if bm, ok := out[k].(map[string]any); ok {
				out[k] = mergeChange(bm, dv)
			} else {
				out[k] = pruneNulls(dv)
			}
		default:
			out[k] = v
		}
	}
	return out
}

// pruneNulls drops null entries from a fresh object value. A null leaf
// means deletion, and there is nothing to delete under a new subtree.
func pruneNulls(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch vv := v.(type) {
		case nil:
			// dropped
		case map[string]any:
			out[k] = pruneNulls(vv)
		default:
			out[k] = v
		}
	}
	return out
}
