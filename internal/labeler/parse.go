package labeler

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrParse matches every *ParseError.
var ErrParse = errors.New("unparseable label response")

// ParseError carries the raw response that could not be decoded.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	raw := e.Raw
	if len(raw) > 80 {
		raw = raw[:80] + "..."
	}
	return fmt.Sprintf("parse label response %q: %v", raw, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ParseJSON decodes a model response into T. Markdown code fences and any
// prose around the outermost JSON value are ignored. Failure returns a
// *ParseError; the caller decides whether that degrades or propagates.
func ParseJSON[T any](raw string) (T, error) {
	var out T
	body := extractJSON(raw)
	if body == "" {
		return out, &ParseError{Raw: raw, Err: errors.New("no JSON value found")}
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return out, &ParseError{Raw: raw, Err: err}
	}
	return out, nil
}

func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return ""
	}
	return s[start : end+1]
}
