package validate

import "strings"

// CleanJSON extracts the first JSON object from a model reply. A fenced
// block anywhere in the reply is preferred over the surrounding prose, and
// trailing text such as citation markers is dropped. A truncated object is
// returned from its opening brace so the decoder reports the failure.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if body, ok := fencedBlock(text); ok {
		text = body
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return text
	}
	if end := objectEnd(text[start:]); end > 0 {
		return text[start : start+end]
	}
	return strings.TrimSpace(text[start:])
}

// fencedBlock returns the contents of the first ``` fence, with any language
// tag removed. An unterminated fence runs to the end of text.
func fencedBlock(text string) (string, bool) {
	open := strings.Index(text, "```")
	if open < 0 {
		return "", false
	}
	rest := text[open+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], "{[") {
		rest = rest[nl+1:]
	} else {
		rest = strings.TrimPrefix(rest, "json")
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}

// objectEnd returns the length of the balanced object starting at s[0], or 0
// when it never closes. Braces inside string literals are ignored.
func objectEnd(s string) int {
	depth := 0
	inString, escaped := false, false
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
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return 0
}
