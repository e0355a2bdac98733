package ai

import (
	"context"
	"sync"

	"coach-connect/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.AIServiceAdapter = (*limitedAI)(nil)

// limitedAI caps concurrent model streams. A slot is held from the call
// until the returned stream is closed.
type limitedAI struct {
	inner adapter.AIServiceAdapter
	sem   chan struct{}
}

func NewLimitedAI(inner adapter.AIServiceAdapter, maxConcurrent int) adapter.AIServiceAdapter {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedAI{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedAI) Name() string { return l.inner.Name() }

func (l *limitedAI) ProviderFor(model string) string {
	if p, ok := l.inner.(interface{ ProviderFor(string) string }); ok {
		return p.ProviderFor(model)
	}
	return l.inner.Name()
}

func (l *limitedAI) StreamCompletion(ctx context.Context, req adapter.CompletionRequest) (adapter.TextStream, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s, err := l.inner.StreamCompletion(ctx, req)
	if err != nil {
		<-l.sem
		return nil, err
	}
	return &releasingStream{TextStream: s, release: func() { <-l.sem }}, nil
}

type releasingStream struct {
	adapter.TextStream
	once    sync.Once
	release func()
}

func (s *releasingStream) Close() error {
	err := s.TextStream.Close()
	s.once.Do(s.release)
	return err
}
