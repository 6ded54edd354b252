package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ParseError means the response contained no decodable JSON array
type ParseError struct {
	Reason  string
	Snippet string
}

func (e *ParseError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("parse response: %s: %q", e.Reason, e.Snippet)
	}
	return "parse response: " + e.Reason
}

var (
	fenceOpenRE  = regexp.MustCompile("^```(?:json)?\\s*\n?")
	fenceCloseRE = regexp.MustCompile("\n?```\\s*$")
)

// ExtractArray locates the single top-level JSON array inside raw text that
// may be preceded or followed by arbitrary prose, and decodes it into out
// (a pointer to a slice).
//
// A greedy first-`[`-to-last-`]` match would be corrupted by a preamble
// containing example arrays or stray brackets, so this scans bracket depth
// character by character, skipping brackets inside string literals.
func ExtractArray(raw string, out any) error {
	text := strings.TrimSpace(raw)
	text = fenceOpenRE.ReplaceAllString(text, "")
	text = fenceCloseRE.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if text == "" {
		return &ParseError{Reason: "empty response"}
	}

	// Fast path: the whole response is the array
	if strings.HasPrefix(text, "[") {
		if err := json.Unmarshal([]byte(text), out); err == nil {
			return nil
		}
	}

	// A truncated bracket in the preamble poisons the candidate anchored at
	// it, so on decode failure the scan moves to the next '[' and tries again.
	found := false
	var lastErr error
	for start := strings.IndexByte(text, '['); start >= 0; {
		candidate, ok := balancedArrayAt(text, start)
		if ok {
			found = true
			if err := json.Unmarshal([]byte(candidate), out); err == nil {
				return nil
			} else {
				lastErr = err
			}
		}
		next := strings.IndexByte(text[start+1:], '[')
		if next < 0 {
			break
		}
		start += 1 + next
	}
	if !found {
		return &ParseError{Reason: "no balanced JSON array found", Snippet: snippet(text)}
	}
	return &ParseError{Reason: "no candidate array is valid JSON: " + lastErr.Error(), Snippet: snippet(text)}
}

// balancedArrayAt returns the substring from text[start] ('[') to the bracket
// that returns the depth to zero, honoring string literals and escapes.
func balancedArrayAt(text string, start int) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

func snippet(s string) string {
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
