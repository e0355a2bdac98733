package model

import "strings"

// CompletionStrategy names the signal that marked a questionnaire as done.
type CompletionStrategy string

const (
	CompletionNone     CompletionStrategy = ""
	CompletionSentinel CompletionStrategy = "sentinel"
	CompletionMarker   CompletionStrategy = "marker"
	CompletionSteps    CompletionStrategy = "steps"
)

// CompletionDetector decides whether a conversation reached the end of its
// questionnaire. Every decision is derived from the messages of the current
// request alone.
type CompletionDetector struct {
	// Sentinels are phrases the coach only says near the final question.
	Sentinels []string
	// Marker is an explicit token the model is told to emit once it has
	// everything it needs. It never reaches the browser.
	Marker string
	// Steps is the questionnaire length in answered question/answer pairs.
	Steps int
}

// Enabled reports whether any strategy is configured.
func (d CompletionDetector) Enabled() bool {
	return len(d.Sentinels) > 0 || d.Marker != "" || d.Steps > 0
}

// Detect reports whether the transcript contains any sentinel phrase or the
// marker.
func (d CompletionDetector) Detect(transcript string) bool {
	return d.matchText(transcript) != CompletionNone
}

// Evaluate runs every strategy against the full request. messages includes
// the latest user message; transcript is the formatted history before it.
func (d CompletionDetector) Evaluate(messages []Message, transcript string) CompletionStrategy {
	if s := d.matchText(transcript); s != CompletionNone {
		return s
	}
	if d.Steps > 0 && AnsweredSteps(messages) >= d.Steps {
		return CompletionSteps
	}
	return CompletionNone
}

func (d CompletionDetector) matchText(transcript string) CompletionStrategy {
	if transcript == "" {
		return CompletionNone
	}
	for _, s := range d.Sentinels {
		if s != "" && strings.Contains(transcript, s) {
			return CompletionSentinel
		}
	}
	if d.Marker != "" && strings.Contains(transcript, d.Marker) {
		return CompletionMarker
	}
	return CompletionNone
}

// AnsweredSteps counts question/answer pairs in a conversation that opens
// with the coach's first question, counting the latest user message.
func AnsweredSteps(messages []Message) int {
	return len(messages) / 2
}
