// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"coach-connect/internal/domain"
	"coach-connect/internal/domain/model"
	"coach-connect/internal/domain/ports/adapter"
	"coach-connect/internal/domain/ports/repository"
	"coach-connect/internal/infra/worker"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---- AI ----

type fakeStream struct {
	chunks []string
	err    error
	i      int
	closed bool
}

func (s *fakeStream) Next() bool {
	if s.i >= len(s.chunks) {
		return false
	}
	s.i++
	return true
}
func (s *fakeStream) Text() string { return s.chunks[s.i-1] }
func (s *fakeStream) Err() error {
	if s.i >= len(s.chunks) {
		return s.err
	}
	return nil
}
func (s *fakeStream) Close() error { s.closed = true; return nil }

type fakeAI struct {
	mu       sync.Mutex
	chunks   []string
	streamEr error // surfaced by the stream after the chunks
	callErr  error // returned by StreamCompletion itself
	requests []adapter.CompletionRequest
	last     *fakeStream
}

func (f *fakeAI) Name() string { return "fake" }

func (f *fakeAI) StreamCompletion(ctx context.Context, req adapter.CompletionRequest) (adapter.TextStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.callErr != nil {
		return nil, f.callErr
	}
	f.last = &fakeStream{chunks: f.chunks, err: f.streamEr}
	return f.last, nil
}

func (f *fakeAI) prompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 || len(f.requests[0].Messages) == 0 {
		return ""
	}
	return f.requests[len(f.requests)-1].Messages[0].Content
}

// ---- Fitness API ----

type submission struct {
	Endpoint string
	Token    string
	Records  []model.QARecord
}

type fakeFitness struct {
	mu         sync.Mutex
	workout    json.RawMessage
	workoutErr error
	submitErr  error
	hang       bool // Submit blocks until ctx is done
	submits    []submission
}

func (f *fakeFitness) GetUserWorkout(ctx context.Context, token, userID string) (json.RawMessage, error) {
	if f.workoutErr != nil {
		return nil, f.workoutErr
	}
	return f.workout, nil
}

func (f *fakeFitness) Submit(ctx context.Context, endpoint, token string, payload []byte) (adapter.SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var recs []model.QARecord
	_ = json.Unmarshal(payload, &recs)
	f.submits = append(f.submits, submission{Endpoint: endpoint, Token: token, Records: recs})
	if f.hang {
		<-ctx.Done()
		return adapter.SubmitResult{}, ctx.Err()
	}
	if f.submitErr != nil {
		return adapter.SubmitResult{StatusCode: 500}, f.submitErr
	}
	return adapter.SubmitResult{StatusCode: 200, Body: json.RawMessage(`{"ok":true}`)}, nil
}

func (f *fakeFitness) submissions() []submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]submission(nil), f.submits...)
}

// ---- Identity ----

type fakeIdentity map[string]string

func (f fakeIdentity) UserID(token string) (string, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return "", domain.ErrInvalidToken
}

// ---- Repositories ----

type memDeliveryRepo struct {
	mu    sync.Mutex
	saved []model.Delivery
	err   error
}

func (m *memDeliveryRepo) Save(ctx context.Context, tx repository.Tx, d *model.Delivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, *d)
	return nil
}

func (m *memDeliveryRepo) statuses() []model.DeliveryStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.DeliveryStatus, 0, len(m.saved))
	for _, d := range m.saved {
		out = append(out, d.Status)
	}
	return out
}

// waitFor polls until n deliveries were audited or the deadline passes.
func (m *memDeliveryRepo) waitFor(n int) []model.DeliveryStatus {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s := m.statuses(); len(s) >= n {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	return m.statuses()
}

type memGuard struct {
	mu       sync.Mutex
	keys     map[string]string
	err      error
	released int
}

func newMemGuard() *memGuard { return &memGuard{keys: map[string]string{}} }

func (g *memGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", false, g.err
	}
	if _, ok := g.keys[key]; ok {
		return "", false, nil
	}
	g.keys[key] = "tok-" + key
	return g.keys[key], true, nil
}

func (g *memGuard) Release(ctx context.Context, key, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.keys[key] == token {
		delete(g.keys, key)
		g.released++
	}
	return nil
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allow, l.err
}

// ---- Queues ----

// inlineQueue runs tasks synchronously so tests can assert right after Turn.
type inlineQueue struct{}

func (inlineQueue) Submit(task worker.Task) error { return task(context.Background()) }

type fullQueue struct{}

func (fullQueue) Submit(task worker.Task) error { return domain.ErrQueueFull }

type countingTokens struct{ calls int }

func (c *countingTokens) Count(model, text string) int { c.calls++; return len(text) / 4 }

var errBoom = errors.New("boom")
