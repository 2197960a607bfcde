package genai

import (
	"encoding/json"
	"strings"
)

// ParseResult is the tagged outcome of a structured-output decode attempt.
// The retry loop inspects OK instead of using errors for control flow.
type ParseResult[T any] struct {
	OK    bool
	Value *T
	Err   error
}

// Parse attempts a direct decode of the payload first and, on failure, a
// decode of a fenced block embedded in free text. A second failure marks
// the whole call attempt as failed.
func Parse[T any](raw string) ParseResult[T] {
	value, err := decode[T](raw)
	if err == nil {
		return ParseResult[T]{OK: true, Value: value}
	}

	block, found := extractFencedBlock(raw)
	if found {
		value, fencedErr := decode[T](block)
		if fencedErr == nil {
			return ParseResult[T]{OK: true, Value: value}
		}
		return ParseResult[T]{Err: fencedErr}
	}

	return ParseResult[T]{Err: err}
}

func decode[T any](content string) (*T, error) {
	var t T
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &t); err != nil {
		return nil, err
	}

	return &t, nil
}

func extractFencedBlock(raw string) (string, bool) {
	start := strings.Index(raw, "```")
	if start == -1 {
		return "", false
	}

	body := raw[start+3:]
	if newline := strings.IndexByte(body, '\n'); newline != -1 {
		// Drop a language tag such as "json" on the opening fence.
		if tag := strings.TrimSpace(body[:newline]); tag == "" || !strings.ContainsAny(tag, "{}[]") {
			body = body[newline+1:]
		}
	}

	end := strings.Index(body, "```")
	if end == -1 {
		return "", false
	}

	return strings.TrimSpace(body[:end]), true
}
