package ai_test

import (
	"context"
	"testing"
	"time"

	"coach-connect/internal/domain/ports/adapter"
	ai "coach-connect/internal/infra/adapters/ai"
)

type stubAI struct {
	name      string
	calls     int
	lastModel string
}

func (s *stubAI) Name() string { return s.name }

func (s *stubAI) StreamCompletion(ctx context.Context, req adapter.CompletionRequest) (adapter.TextStream, error) {
	s.calls++
	s.lastModel = req.Model
	return &stubStream{}, nil
}

type stubStream struct{ closed bool }

func (s *stubStream) Next() bool   { return false }
func (s *stubStream) Text() string { return "" }
func (s *stubStream) Err() error   { return nil }
func (s *stubStream) Close() error { s.closed = true; return nil }

func TestRouting_ExplicitMap_Heuristics_And_Fallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	open := &stubAI{name: "openai"}
	gem := &stubAI{name: "gemini"}

	m := ai.NewMultiAIAdapter(
		"openai",
		map[string]adapter.AIServiceAdapter{"openai": open, "gemini": gem},
		map[string]string{"custom-x": "gemini"},
	)
	call := func(model string) {
		_, _ = m.StreamCompletion(ctx, adapter.CompletionRequest{Model: model})
	}

	// explicit map wins
	call("custom-x")
	if gem.calls != 1 || open.calls != 0 {
		t.Fatalf("explicit map should route to gemini, got open:%d gem:%d", open.calls, gem.calls)
	}
	open.calls, gem.calls = 0, 0

	// fine-tuned models are OpenAI models
	call("ft:gpt-4.1-mini-2025-04-14:personal:coach-connect:BOZ5t36c")
	if open.calls != 1 || gem.calls != 0 {
		t.Fatalf("ft:* should go openai")
	}
	open.calls, gem.calls = 0, 0

	// gemini-* -> gemini
	call("gemini-1.5-flash")
	if gem.calls != 1 || open.calls != 0 {
		t.Fatalf("heuristic gemini-* should go gemini")
	}
	open.calls, gem.calls = 0, 0

	// unknown -> default provider (openai)
	call("unknown")
	if open.calls != 1 || gem.calls != 0 {
		t.Fatalf("unknown model should go to default provider (openai)")
	}

	if got := m.ProviderFor("gemini-2.0-flash"); got != "gemini" {
		t.Fatalf("ProviderFor = %q", got)
	}
}

func TestRouting_MissingProviderFallsBack(t *testing.T) {
	open := &stubAI{name: "openai"}
	m := ai.NewMultiAIAdapter("openai", map[string]adapter.AIServiceAdapter{"openai": open}, nil)
	if _, err := m.StreamCompletion(context.Background(), adapter.CompletionRequest{Model: "gemini-pro"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if open.calls != 1 {
		t.Fatal("expected the only configured provider to serve the call")
	}

	empty := ai.NewMultiAIAdapter("openai", nil, nil)
	if _, err := empty.StreamCompletion(context.Background(), adapter.CompletionRequest{}); err == nil {
		t.Fatal("expected an error without providers")
	}
}

func TestLimitedAI_HoldsSlotUntilClose(t *testing.T) {
	inner := &stubAI{name: "openai"}
	l := ai.NewLimitedAI(inner, 1)

	s1, err := l.StreamCompletion(context.Background(), adapter.CompletionRequest{})
	if err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := l.StreamCompletion(ctx, adapter.CompletionRequest{}); err == nil {
		t.Fatal("second call must wait for the open stream")
	}

	_ = s1.Close()
	_ = s1.Close() // double close must not release twice
	s2, err := l.StreamCompletion(context.Background(), adapter.CompletionRequest{})
	if err != nil {
		t.Fatalf("call after close: %v", err)
	}
	_ = s2.Close()
	if l.Name() != "openai" {
		t.Fatalf("name should pass through, got %q", l.Name())
	}
}

func TestNoopAdapterStreamsReply(t *testing.T) {
	a := &ai.NoopAIAdapter{Reply: "one two three"}
	s, err := a.StreamCompletion(context.Background(), adapter.CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()
	var got string
	n := 0
	for s.Next() {
		got += s.Text()
		n++
	}
	if got != "one two three" || n != 3 || s.Err() != nil {
		t.Fatalf("got %q in %d chunks (err %v)", got, n, s.Err())
	}
}
