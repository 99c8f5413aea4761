package extraction

import "strings"

// SegmentLines splits text into trimmed, non-empty lines in their original order.
func SegmentLines(text string) []string {
	fields := strings.FieldsFunc(text, isLineBreak)
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		if l := strings.TrimSpace(f); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}
