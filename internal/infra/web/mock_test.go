//go:build !integration

package web

import (
	"context"
	"errors"
	"sync"

	"coach-connect/internal/domain/model"
	"coach-connect/internal/usecase"
)

type sliceStream struct {
	chunks []string
	err    error
	i      int
	closed bool
}

func (s *sliceStream) Next() bool {
	if s.i >= len(s.chunks) {
		return false
	}
	s.i++
	return true
}
func (s *sliceStream) Text() string { return s.chunks[s.i-1] }
func (s *sliceStream) Err() error {
	if s.i >= len(s.chunks) {
		return s.err
	}
	return nil
}
func (s *sliceStream) Close() error { s.closed = true; return nil }

// mockChatUC records every turn and answers with the configured stream or error.
type mockChatUC struct {
	mu     sync.Mutex
	inputs []usecase.TurnInput
	flows  []string
	stream *sliceStream
	err    error
}

func (m *mockChatUC) Turn(ctx context.Context, flow model.Flow, in usecase.TurnInput) (*usecase.TurnResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = append(m.inputs, in)
	m.flows = append(m.flows, flow.Name)
	if m.err != nil {
		return nil, m.err
	}
	return &usecase.TurnResult{Stream: m.stream, Provider: "fake", Model: flow.Model}, nil
}

type mockPinger struct{ err error }

func (p mockPinger) Ping(ctx context.Context) error { return p.err }

var errDown = errors.New("connection refused")
