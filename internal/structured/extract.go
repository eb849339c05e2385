// Package structured recovers JSON values from free-form LLM responses.
package structured

import (
	"encoding/json"
	"errors"
	"strings"
)

// Shape is the expected top-level JSON container.
type Shape int

const (
	ShapeArray Shape = iota
	ShapeObject
)

func (s Shape) open() byte {
	if s == ShapeArray {
		return '['
	}
	return '{'
}

func (s Shape) String() string {
	if s == ShapeArray {
		return "array"
	}
	return "object"
}

// ErrMalformedOutput is matched by every MalformedOutputError.
var ErrMalformedOutput = errors.New("malformed output")

// MalformedOutputError reports a response that could not be turned into the
// expected shape. Raw holds the original text for logging.
type MalformedOutputError struct {
	Shape  Shape
	Reason string
	Raw    string
	Err    error
}

func (e *MalformedOutputError) Error() string {
	msg := "malformed output: expected " + e.Shape.String() + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

func (e *MalformedOutputError) Is(target error) bool {
	return target == ErrMalformedOutput
}

// Extract returns the JSON text of the first value of the given shape found
// in text. truncated reports that the provider stopped at its output limit;
// unterminated output is repaired the same way whether or not it was flagged.
func Extract(text string, shape Shape, truncated bool) (string, error) {
	malformed := func(reason string) error {
		return &MalformedOutputError{Shape: shape, Reason: reason, Raw: text}
	}

	body := StripFences(text)
	start := strings.IndexByte(body, shape.open())
	if start < 0 {
		return "", malformed("no " + shape.String() + " found")
	}
	body = body[start:]

	end, lastElem := scan(body)
	if end > 0 {
		return body[:end], nil
	}

	// Unterminated container. Arrays can be cut back to their last complete
	// element; objects cannot be repaired.
	if shape == ShapeObject {
		if truncated {
			return "", malformed("object cut off at output limit")
		}
		return "", malformed("unterminated object")
	}
	if lastElem <= 0 {
		return "", malformed("truncated before first complete element")
	}
	return body[:lastElem] + "]", nil
}

// Decode extracts a value of the given shape and unmarshals it into out.
func Decode(text string, shape Shape, truncated bool, out any) error {
	raw, err := Extract(text, shape, truncated)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &MalformedOutputError{Shape: shape, Reason: "invalid json", Raw: text, Err: err}
	}
	return nil
}

// StripFences trims whitespace and removes a surrounding markdown code fence.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = s[3:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "`")
	return strings.TrimSpace(s)
}

// scan walks s, which starts with an opening bracket, honoring strings and
// escapes. It returns the index just past the matching close (0 if the
// container never closes) and the index just past the last element that
// closed at depth one.
func scan(s string) (end, lastElem int) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				if depth == 1 {
					lastElem = i + 1
				}
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return i + 1, lastElem
			}
			if depth == 1 {
				lastElem = i + 1
			}
		}
	}
	return 0, lastElem
}
