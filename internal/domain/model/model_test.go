//go:build !integration

package model

import (
	"encoding/json"
	"errors"
	"testing"

	"coach-connect/internal/domain"
)

// --- Message Tests ---

func TestValidateMessages(t *testing.T) {
	t.Run("should reject an empty list", func(t *testing.T) {
		err := ValidateMessages(nil, false)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should reject unknown roles", func(t *testing.T) {
		err := ValidateMessages([]Message{{Role: "robot", Content: "beep"}}, true)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should only accept system messages when allowed", func(t *testing.T) {
		msgs := []Message{{Role: RoleSystem, Content: "be brief"}, {Role: RoleUser, Content: "hi"}}
		if err := ValidateMessages(msgs, false); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		if err := ValidateMessages(msgs, true); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestSplitLast(t *testing.T) {
	msgs := []Message{{Role: RoleAssistant, Content: "q"}, {Role: RoleUser, Content: "a"}}
	prior, last := SplitLast(msgs)
	if len(prior) != 1 || prior[0].Content != "q" {
		t.Fatalf("unexpected prior: %+v", prior)
	}
	if last.Content != "a" {
		t.Fatalf("unexpected last: %+v", last)
	}
	if p, l := SplitLast(nil); p != nil || l != (Message{}) {
		t.Fatal("expected zero values for an empty list")
	}
}

func TestAlternates(t *testing.T) {
	if !Alternates([]Message{{Role: RoleAssistant}, {Role: RoleUser}, {Role: RoleAssistant}}) {
		t.Error("expected alternating sequence")
	}
	if Alternates([]Message{{Role: RoleAssistant}, {Role: RoleAssistant}}) {
		t.Error("expected non-alternating sequence")
	}
}

// --- Transcript Tests ---

func TestFormatTranscript(t *testing.T) {
	msgs := []Message{
		{Role: RoleAssistant, Content: "What's your age?"},
		{Role: RoleUser, Content: "30 💪"},
	}
	want := "assistant: What's your age?\nuser: 30 💪"
	if got := FormatTranscript(msgs); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := FormatTranscript(nil); got != "" {
		t.Fatalf("expected empty transcript, got %q", got)
	}
}

// --- Q&A Tests ---

func TestExtractQA(t *testing.T) {
	t.Run("should pair even and odd messages", func(t *testing.T) {
		msgs := []Message{
			{Role: RoleAssistant, Content: "Age?"},
			{Role: RoleUser, Content: "30"},
			{Role: RoleAssistant, Content: "Goal?"},
			{Role: RoleUser, Content: "Strength"},
		}
		got := ExtractQA(msgs, ExtractOptions{})
		want := []QARecord{{"Age?", "30"}, {"Goal?", "Strength"}}
		if len(got) != len(want) {
			t.Fatalf("expected %d records, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("record %d: got %+v, want %+v", i, got[i], want[i])
			}
		}
	})

	t.Run("should leave the last answer empty for odd input", func(t *testing.T) {
		msgs := []Message{
			{Role: RoleAssistant, Content: "Age?"},
			{Role: RoleUser, Content: "30"},
			{Role: RoleAssistant, Content: "And lastly, any injuries?"},
		}
		got := ExtractQA(msgs, ExtractOptions{})
		if len(got) != 2 {
			t.Fatalf("expected 2 records, got %d", len(got))
		}
		if got[1].Question != "And lastly, any injuries?" || got[1].Answer != "" {
			t.Fatalf("unexpected last record %+v", got[1])
		}
	})

	t.Run("should strip non-ascii when asked", func(t *testing.T) {
		msgs := []Message{{Role: RoleAssistant, Content: "Hello 👋 world"}, {Role: RoleUser, Content: "¡Sí!"}}
		got := ExtractQA(msgs, ExtractOptions{StripNonASCII: true})
		if got[0].Question != "Hello  world" {
			t.Fatalf("got %q", got[0].Question)
		}
		if got[0].Answer != "S!" {
			t.Fatalf("got %q", got[0].Answer)
		}
	})

	t.Run("should drop duplicate pairs", func(t *testing.T) {
		msgs := []Message{
			{Role: RoleAssistant, Content: "Age?"},
			{Role: RoleUser, Content: "30"},
			{Role: RoleAssistant, Content: "Age?"},
			{Role: RoleUser, Content: "30"},
		}
		if got := ExtractQA(msgs, ExtractOptions{}); len(got) != 1 {
			t.Fatalf("expected 1 record after dedup, got %d", len(got))
		}
	})
}

func TestMarshalQA(t *testing.T) {
	b, err := MarshalQA(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "[]" {
		t.Fatalf("expected [], got %s", b)
	}

	b, err = MarshalQA([]QARecord{{Question: "Age?", Answer: "30"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var back []map[string]string
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if back[0]["question"] != "Age?" || back[0]["answer"] != "30" {
		t.Fatalf("unexpected payload %s", b)
	}
}

// --- Completion Tests ---

func TestCompletionDetector(t *testing.T) {
	d := CompletionDetector{
		Sentinels: []string{"And lastly", "por ultimo"},
		Marker:    "[[ONBOARDING_COMPLETE]]",
		Steps:     3,
	}

	t.Run("should fire on a sentinel phrase", func(t *testing.T) {
		if !d.Detect("assistant: And lastly, how many days can you train?") {
			t.Fatal("expected detection")
		}
	})

	t.Run("should not fire without a signal", func(t *testing.T) {
		if d.Detect("assistant: What's your age?\nuser: 30") {
			t.Fatal("expected no detection")
		}
		if d.Detect("") {
			t.Fatal("expected no detection on an empty transcript")
		}
	})

	t.Run("should report the marker strategy", func(t *testing.T) {
		got := d.Evaluate(nil, "assistant: Great, thanks! [[ONBOARDING_COMPLETE]]")
		if got != CompletionMarker {
			t.Fatalf("expected marker, got %q", got)
		}
	})

	t.Run("should count answered steps", func(t *testing.T) {
		msgs := []Message{
			{Role: RoleAssistant, Content: "q1"}, {Role: RoleUser, Content: "a1"},
			{Role: RoleAssistant, Content: "q2"}, {Role: RoleUser, Content: "a2"},
			{Role: RoleAssistant, Content: "q3"},
		}
		if got := d.Evaluate(msgs, FormatTranscript(msgs[:4])); got != CompletionNone {
			t.Fatalf("expected no completion after two answers, got %q", got)
		}
		msgs = append(msgs, Message{Role: RoleUser, Content: "a3"})
		if got := d.Evaluate(msgs, FormatTranscript(msgs[:5])); got != CompletionSteps {
			t.Fatalf("expected steps, got %q", got)
		}
	})

	t.Run("should be disabled when empty", func(t *testing.T) {
		var none CompletionDetector
		if none.Enabled() {
			t.Fatal("expected disabled detector")
		}
		if none.Evaluate([]Message{{}, {}, {}, {}}, "And lastly") != CompletionNone {
			t.Fatal("expected no completion")
		}
	})
}

func TestFlowForwards(t *testing.T) {
	f := Flow{Forward: ForwardTarget{Endpoint: "/answers"}}
	if f.Forwards() {
		t.Fatal("a flow without a completion strategy must not forward")
	}
	f.Completion.Sentinels = []string{"And lastly"}
	if !f.Forwards() {
		t.Fatal("expected flow to forward")
	}
}
