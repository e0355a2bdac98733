package ai

import (
	"context"
	"strings"
	"time"

	"coach-connect/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAIAdapter)(nil)

// NoopAIAdapter streams a canned coach reply word by word. It backs -dev
// runs without provider keys.
type NoopAIAdapter struct {
	Reply string
	Delay time.Duration
}

func NewNoopAIAdapter() *NoopAIAdapter {
	return &NoopAIAdapter{
		Reply: "Thanks! Noted. What's your primary training goal right now?",
		Delay: 30 * time.Millisecond,
	}
}

func (a *NoopAIAdapter) Name() string { return "noop" }

func (a *NoopAIAdapter) StreamCompletion(ctx context.Context, req adapter.CompletionRequest) (adapter.TextStream, error) {
	words := strings.SplitAfter(a.Reply, " ")
	return &sliceStream{ctx: ctx, chunks: words, delay: a.Delay}, nil
}

// sliceStream replays fixed chunks.
type sliceStream struct {
	ctx    context.Context
	chunks []string
	delay  time.Duration
	i      int
	err    error
}

func (s *sliceStream) Next() bool {
	if s.err != nil || s.i >= len(s.chunks) {
		return false
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-s.ctx.Done():
			s.err = s.ctx.Err()
			return false
		}
	}
	s.i++
	return true
}

func (s *sliceStream) Text() string {
	if s.i == 0 || s.i > len(s.chunks) {
		return ""
	}
	return s.chunks[s.i-1]
}

func (s *sliceStream) Err() error   { return s.err }
func (s *sliceStream) Close() error { return nil }
