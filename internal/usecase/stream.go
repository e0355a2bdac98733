package usecase

import (
	"strings"
	"sync"

	"coach-connect/internal/domain/ports/adapter"
)

// prime pulls the first chunk so that a failing model call is reported as
// an error before any response bytes are written.
func prime(s adapter.TextStream) (adapter.TextStream, error) {
	if s.Next() {
		return &primedStream{TextStream: s, pending: true}, nil
	}
	if err := s.Err(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return &primedStream{TextStream: s, done: true}, nil
}

type primedStream struct {
	adapter.TextStream
	pending bool
	done    bool
}

func (p *primedStream) Next() bool {
	if p.pending {
		p.pending = false
		return true
	}
	if p.done {
		return false
	}
	return p.TextStream.Next()
}

// markerStream removes every occurrence of marker from the text, including
// occurrences split across chunks, and reports once at the end whether it
// saw one.
type markerStream struct {
	inner   adapter.TextStream
	marker  string
	onDone  func(seen bool)
	once    sync.Once
	pending string
	out     string
	seen    bool
	ended   bool
}

func newMarkerStream(inner adapter.TextStream, marker string, onDone func(seen bool)) *markerStream {
	return &markerStream{inner: inner, marker: marker, onDone: onDone}
}

func (m *markerStream) Next() bool {
	for !m.ended {
		if !m.inner.Next() {
			m.ended = true
			m.finish()
			if m.pending != "" {
				m.out, m.pending = m.pending, ""
				return true
			}
			return false
		}
		m.pending += m.inner.Text()
		for {
			i := strings.Index(m.pending, m.marker)
			if i < 0 {
				break
			}
			m.seen = true
			m.pending = m.pending[:i] + m.pending[i+len(m.marker):]
		}
		keep := partialSuffix(m.pending, m.marker)
		emit := m.pending[:len(m.pending)-keep]
		m.pending = m.pending[len(m.pending)-keep:]
		if emit != "" {
			m.out = emit
			return true
		}
	}
	m.out = ""
	return false
}

func (m *markerStream) Text() string { return m.out }
func (m *markerStream) Err() error   { return m.inner.Err() }

func (m *markerStream) Close() error {
	err := m.inner.Close()
	m.finish()
	return err
}

func (m *markerStream) finish() {
	m.once.Do(func() {
		if m.onDone != nil {
			m.onDone(m.seen)
		}
	})
}

// partialSuffix returns the length of the longest suffix of s that is a
// proper prefix of marker.
func partialSuffix(s, marker string) int {
	n := len(marker) - 1
	if n > len(s) {
		n = len(s)
	}
	for k := n; k > 0; k-- {
		if strings.HasSuffix(s, marker[:k]) {
			return k
		}
	}
	return 0
}
