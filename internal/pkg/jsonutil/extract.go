package jsonutil

import "strings"

const codeFence = "```"

// StripFence removes a surrounding Markdown code fence (``` or ```json) from
// raw, returning the inner text. Text without a fence passes through trimmed.
func StripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, codeFence) {
		return s
	}
	s = s[len(codeFence):]
	// Drop an optional language tag on the fence line.
	if idx := strings.Index(s, "\n"); idx != -1 {
		first := strings.TrimSpace(s[:idx])
		if first != "" && !strings.ContainsAny(first, "[{") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, codeFence)
	return strings.TrimSpace(s)
}

// ExtractJSONObject returns the first balanced top-level JSON object in raw,
// looking inside code fences first. The scan is string-aware so braces inside
// quoted values do not unbalance it.
func ExtractJSONObject(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if strings.Contains(raw, codeFence) {
		if obj, ok := scanObject(StripFence(raw)); ok {
			return obj, true
		}
	}
	return scanObject(raw)
}

func scanObject(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			if escape {
				escape = false
				continue
			}
			switch ch {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(raw[start : i+1]), true
			}
		}
	}
	return "", false
}
