// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"errors"
	"iter"
	"strings"

	"google.golang.org/genai"

	"coach-connect/internal/domain"
	"coach-connect/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
	maxOut       int
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, defaultModel string, maxOut int) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	if defaultModel == "" {
		defaultModel = "gemini-2.0-flash"
	}
	return &GeminiAdapter{client: c, defaultModel: defaultModel, maxOut: maxOut}, nil
}

func (g *GeminiAdapter) Name() string { return "gemini" }

func (g *GeminiAdapter) StreamCompletion(ctx context.Context, req adapter.CompletionRequest) (adapter.TextStream, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("gemini: no messages")
	}
	cfg := &genai.GenerateContentConfig{StopSequences: req.Stop}
	if g.maxOut > 0 {
		cfg.MaxOutputTokens = int32(g.maxOut)
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}
	seq := g.client.Models.GenerateContentStream(ctx, modelOrDefault(req.Model, g.defaultModel), toGenAIHistory(req.Messages), cfg)
	next, stop := iter.Pull2(seq)
	return &geminiStream{next: next, stop: stop}, nil
}

type geminiStream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()
	text string
	err  error
	done bool
}

func (s *geminiStream) Next() bool {
	s.text = ""
	for !s.done {
		resp, err, ok := s.next()
		if !ok {
			s.done = true
			break
		}
		if err != nil {
			var apiErr genai.APIError
			if errors.As(err, &apiErr) && apiErr.Code > 0 {
				err = &domain.StatusError{Code: apiErr.Code, Err: err}
			}
			s.err = err
			s.done = true
			break
		}
		if t := resp.Text(); t != "" {
			s.text = t
			return true
		}
	}
	return false
}

func (s *geminiStream) Text() string { return s.text }
func (s *geminiStream) Err() error   { return s.err }

func (s *geminiStream) Close() error {
	s.done = true
	s.stop()
	return nil
}

func toGenAIHistory(msgs []adapter.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		switch strings.ToLower(m.Role) {
		case "assistant", "model":
			role = genai.RoleModel
		case "system":
			// Gemini has no system role in history; send it as a user turn.
			role = genai.RoleUser
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return out
}

func modelOrDefault(model, def string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return def
}
