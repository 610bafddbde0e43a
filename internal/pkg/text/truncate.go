package text

func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// Preview shortens s for log lines, collapsing newlines so a multi-line model
// response stays on one line.
func Preview(s string, max int) string {
	out := Truncate(s, max)
	out = stringsReplaceNewlines(out)
	return out
}

func stringsReplaceNewlines(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' || c == '\r' {
			if len(b) > 0 && b[len(b)-1] == ' ' {
				continue
			}
			b = append(b, ' ')
			continue
		}
		b = append(b, c)
	}
	return string(b)
}
