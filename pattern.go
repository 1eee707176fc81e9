package dbtrigger

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPattern is returned when a path template cannot be compiled.
var ErrInvalidPattern = errors.New("invalid path pattern")

type segmentKind int

const (
	segmentLiteral       segmentKind = iota // exact text
	segmentWildcard                         // *
	segmentCapture                          // {name}
	segmentMultiWildcard                    // **
	segmentMultiCapture                     // {name=**}
)

// segment is one slash-delimited unit of a compiled pattern.
type segment struct {
	kind segmentKind
	name string // capture name; empty for uncaptured kinds
	text string // literal text; empty for non-literals
}

func (s segment) multi() bool {
	return s.kind == segmentMultiWildcard || s.kind == segmentMultiCapture
}

// Pattern is a compiled path template.
//
// A pattern is a sequence of slash-separated segments. A literal segment
// matches itself, * matches any single component, {name} matches any
// single component and captures it, ** matches zero or more contiguous
// components, and {name=**} captures the joined span it matches. At most
// one ** or {name=**} may appear in a pattern.
//
// Pattern holds no mutable state after compilation, so a single instance
// may be matched concurrently from any number of goroutines.
type Pattern struct {
	source   string
	segments []segment
	multiAt  int // index of the multi-segment token, -1 when absent
}

// CompilePattern parses a path template. Leading and trailing slashes are
// ignored. It returns an error wrapping ErrInvalidPattern when the
// template contains more than one multi-segment wildcard or a malformed
// capture.
func CompilePattern(source string) (*Pattern, error) {
	trimmed := strings.Trim(source, "/")
	p := &Pattern{source: trimmed, multiAt: -1}
	if trimmed == "" {
		return p, nil
	}
	for _, tok := range strings.Split(trimmed, "/") {
		seg, err := classifySegment(tok)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w: %v", source, ErrInvalidPattern, err)
		}
		if seg.multi() {
			if p.multiAt >= 0 {
				return nil, fmt.Errorf("pattern %q: %w: more than one multi-segment wildcard", source, ErrInvalidPattern)
			}
			p.multiAt = len(p.segments)
		}
		p.segments = append(p.segments, seg)
	}
	return p, nil
}

// classifySegment determines the kind of a single raw token.
func classifySegment(tok string) (segment, error) {
	switch {
	case tok == "*":
		return segment{kind: segmentWildcard}, nil
	case tok == "**":
		return segment{kind: segmentMultiWildcard}, nil
	case strings.ContainsAny(tok, "{}"):
		if !strings.HasPrefix(tok, "{") || !strings.HasSuffix(tok, "}") {
			return segment{}, fmt.Errorf("unterminated capture %q", tok)
		}
		inner := tok[1 : len(tok)-1]
		if strings.ContainsAny(inner, "{}") {
			return segment{}, fmt.Errorf("nested braces in capture %q", tok)
		}
		if name, ok := strings.CutSuffix(inner, "=**"); ok {
			if name == "" {
				return segment{}, fmt.Errorf("empty capture name in %q", tok)
			}
			return segment{kind: segmentMultiCapture, name: name}, nil
		}
		if inner == "" {
			return segment{}, fmt.Errorf("empty capture name in %q", tok)
		}
		return segment{kind: segmentCapture, name: inner}, nil
	default:
		return segment{kind: segmentLiteral, text: tok}, nil
	}
}

// String returns the slash-trimmed source the pattern was compiled from.
func (p *Pattern) String() string {
	return p.source
}

// Params maps capture names to the path components they matched.
type Params map[string]string

// Match attempts to match a concrete path against the pattern. It returns
// the captured parameters and true on success, or nil and false when the
// candidate does not fit. Match never returns an error: callers may probe
// freely.
//
// When the pattern holds a multi-segment wildcard, the number of
// components it consumes is derived from the candidate's total length
// rather than by scanning, so fixed segments on both sides of the
// wildcard line up positionally.
func (p *Pattern) Match(candidate string) (Params, bool) {
	comps := splitPath(candidate)
	params := make(Params)

	if p.multiAt < 0 {
		if len(comps) != len(p.segments) {
			return nil, false
		}
		if !matchFixed(p.segments, comps, params) {
			return nil, false
		}
		return params, true
	}

	fixed := len(p.segments) - 1
	span := len(comps) - fixed
	if span < 0 {
		return nil, false
	}

	i := p.multiAt
	if !matchFixed(p.segments[:i], comps[:i], params) {
		return nil, false
	}
	if seg := p.segments[i]; seg.kind == segmentMultiCapture {
		params[seg.name] = strings.Join(comps[i:i+span], "/")
	}
	if !matchFixed(p.segments[i+1:], comps[i+span:], params) {
		return nil, false
	}
	return params, true
}

// matchFixed matches non-multi segments positionally against an equal
// number of candidate components, recording captures into params.
func matchFixed(segs []segment, comps []string, params Params) bool {
	for i, seg := range segs {
		switch seg.kind {
		case segmentLiteral:
			if comps[i] != seg.text {
				return false
			}
		case segmentCapture:
			params[seg.name] = comps[i]
		case segmentWildcard:
			// consumes one component, captures nothing
		}
	}
	return true
}

// splitPath splits a slash-trimmed path into components. An empty path
// yields no components.
func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// hasRoutingSyntax reports whether a raw pattern source contains wildcard
// or capture syntax, as opposed to being a plain literal identifier.
func hasRoutingSyntax(source string) bool {
	return strings.ContainsAny(source, "*{}")
}
