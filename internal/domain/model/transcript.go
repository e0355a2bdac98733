package model

import "strings"

// FormatMessage renders a single message as a "role: content" line.
func FormatMessage(m Message) string {
	return string(m.Role) + ": " + m.Content
}

// FormatTranscript renders messages in order, one "role: content" line each.
// Content is passed through untouched.
func FormatTranscript(msgs []Message) string {
	if len(msgs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(FormatMessage(m))
	}
	return b.String()
}
