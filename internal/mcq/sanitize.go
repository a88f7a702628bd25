package mcq

import (
	"encoding/json"
	"strings"
)

// sanitize repairs common defects in model output before parsing. Valid
// JSON passes through untouched apart from fence stripping: the repair
// steps only run when a strict parse fails.
func sanitize(raw string) string {
	s := stripCodeFence(raw)
	if json.Valid([]byte(s)) {
		return s
	}
	s = escapeInvalidBackslashes(s)
	if json.Valid([]byte(s)) {
		return s
	}
	return repairTruncation(s)
}

// stripCodeFence removes a surrounding Markdown code fence, with or
// without a language tag, along with outer whitespace.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = s[3:]
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// Drop the language tag line, e.g. "json".
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// escapeInvalidBackslashes doubles every backslash that does not start a
// legal JSON escape sequence. Models emitting LaTeX inside string values
// routinely produce sequences like \alpha which strict parsers reject.
func escapeInvalidBackslashes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if n := legalEscapeLen(s, i); n > 0 {
			b.WriteString(s[i : i+n])
			i += n - 1
			continue
		}
		b.WriteString(`\\`)
	}
	return b.String()
}

// legalEscapeLen returns the byte length of the legal JSON escape
// sequence starting at s[i], or 0 if the backslash at i starts none.
func legalEscapeLen(s string, i int) int {
	if i+1 >= len(s) {
		return 0
	}
	switch s[i+1] {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		return 2
	case 'u':
		if i+6 > len(s) {
			return 0
		}
		for j := i + 2; j < i+6; j++ {
			if !isHex(s[j]) {
				return 0
			}
		}
		return 6
	}
	return 0
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// repairTruncation patches output cut off mid-stream, typically by a
// token limit. When the text ends inside a string literal a closing
// quote is appended, then braces and brackets are balanced by count.
// Only ever called on input that already failed a strict parse.
func repairTruncation(s string) string {
	trimmed := strings.TrimRight(s, " \t\r\n,")
	if trimmed == "" {
		return s
	}

	if inOpenString(trimmed) {
		trimmed += `"`
	}

	openBraces := strings.Count(trimmed, "{") - strings.Count(trimmed, "}")
	openBrackets := strings.Count(trimmed, "[") - strings.Count(trimmed, "]")
	var b strings.Builder
	b.WriteString(trimmed)
	for i := 0; i < openBraces; i++ {
		b.WriteByte('}')
	}
	for i := 0; i < openBrackets; i++ {
		b.WriteByte(']')
	}
	return b.String()
}

// inOpenString reports whether s ends inside an unterminated string
// literal, tracking quotes with their escapes so text that ends right
// after a closed string is left alone.
func inOpenString(s string) bool {
	open := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if open {
				i++
			}
		case '"':
			open = !open
		}
	}
	return open
}
