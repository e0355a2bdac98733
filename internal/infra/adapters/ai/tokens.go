package ai

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"coach-connect/internal/domain/ports/adapter"
)

var _ adapter.TokenCounter = (*TokenCounter)(nil)

// TokenCounter counts prompt tokens with the tiktoken encoding of the model,
// falling back to cl100k_base for models tiktoken does not know (fine-tunes,
// Gemini) and to a length estimate when no encoding can be loaded.
type TokenCounter struct {
	mu       sync.Mutex
	fallback string
	encs     map[string]*tiktoken.Tiktoken
}

var offlineRanks sync.Once

// NewTokenCounter uses fallbackModel's encoding for unknown models. BPE ranks
// are read from the files embedded by tiktoken-go-loader; tiktoken's default
// loader downloads them with no timeout.
func NewTokenCounter(fallbackModel string) *TokenCounter {
	offlineRanks.Do(func() { tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader()) })
	return &TokenCounter{fallback: fallbackModel, encs: map[string]*tiktoken.Tiktoken{}}
}

// Warm loads the encodings of models ahead of the first turn.
func (c *TokenCounter) Warm(models ...string) {
	for _, m := range models {
		c.encoding(baseModel(m))
	}
}

func (c *TokenCounter) Count(model, text string) int {
	if text == "" {
		return 0
	}
	enc := c.encoding(baseModel(model))
	if enc == nil {
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

func (c *TokenCounter) encoding(model string) *tiktoken.Tiktoken {
	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encs[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil && c.fallback != "" {
		enc, err = tiktoken.EncodingForModel(c.fallback)
	}
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		enc = nil
	}
	c.encs[model] = enc
	return enc
}

// baseModel maps "ft:gpt-4o-mini-2024-07-18:org:name:id" to
// "gpt-4o-mini-2024-07-18".
func baseModel(model string) string {
	if rest, ok := strings.CutPrefix(model, "ft:"); ok {
		if i := strings.IndexByte(rest, ':'); i >= 0 {
			return rest[:i]
		}
		return rest
	}
	return model
}
