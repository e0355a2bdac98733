// File: internal/usecase/chat_uc.go
package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"coach-connect/internal/domain"
	"coach-connect/internal/domain/model"
	"coach-connect/internal/domain/ports/adapter"
	"coach-connect/internal/domain/ports/repository"
	"coach-connect/internal/infra/logging"
	"coach-connect/internal/infra/metrics"
)

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

// ChatUseCase runs one conversational turn of a flow.
type ChatUseCase interface {
	Turn(ctx context.Context, flow model.Flow, in TurnInput) (*TurnResult, error)
}

// TurnInput is everything the browser sends for a turn.
type TurnInput struct {
	Messages []model.Message
	// Token is the bearer credential, passed through to the fitness API.
	Token string
	// ClientKey identifies an anonymous caller for rate limiting.
	ClientKey string
}

// TurnResult carries the model's reply stream. The caller must Close Stream.
type TurnResult struct {
	Stream     adapter.TextStream
	Provider   string
	Model      string
	Completion model.CompletionStrategy
	Forwarded  bool
}

type chatUC struct {
	ai       adapter.AIServiceAdapter
	fitness  adapter.FitnessAPI
	identity adapter.IdentityDecoder
	prompts  *PromptRenderer
	fwd      *Forwarder
	limiter  repository.RateLimiter
	tokens   adapter.TokenCounter
	log      *zerolog.Logger
}

// NewChatUseCase wires the turn pipeline. limiter and tokens may be nil.
func NewChatUseCase(
	ai adapter.AIServiceAdapter,
	fitness adapter.FitnessAPI,
	identity adapter.IdentityDecoder,
	prompts *PromptRenderer,
	fwd *Forwarder,
	limiter repository.RateLimiter,
	tokens adapter.TokenCounter,
	log *zerolog.Logger,
) *chatUC {
	l := log.With().Str("component", "chat_uc").Logger()
	return &chatUC{
		ai:       ai,
		fitness:  fitness,
		identity: identity,
		prompts:  prompts,
		fwd:      fwd,
		limiter:  limiter,
		tokens:   tokens,
		log:      &l,
	}
}

func (c *chatUC) Turn(ctx context.Context, flow model.Flow, in TurnInput) (*TurnResult, error) {
	ctx = logging.WithFlow(ctx, flow.Name)
	log := logging.With(ctx, c.log)
	defer logging.TraceDuration(log, "ChatUC.Turn")()

	userID, err := c.resolveUser(flow, in.Token)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateMessages(in.Messages, flow.Mode == model.FlowDirect); err != nil {
		return nil, err
	}
	if userID != "" {
		ctx = logging.WithUserID(ctx, userID)
		log = logging.With(ctx, c.log)
	}

	if err := c.checkRate(ctx, flow, userID, in.ClientKey, log); err != nil {
		return nil, err
	}

	prior, last := model.SplitLast(in.Messages)
	transcript := model.FormatTranscript(prior)

	req := adapter.CompletionRequest{Model: flow.Model, Stop: flow.Stop, Temperature: flow.Temperature}
	switch flow.Mode {
	case model.FlowDirect:
		req.Messages = toAdapterMessages(in.Messages)
	default:
		vars := PromptVars{ChatHistory: transcript, Input: last.Content}
		if flow.WorkoutContext {
			vars.UserWorkout = c.workoutContext(ctx, in.Token, userID, log)
		}
		prompt, err := c.prompts.Render(flow.Name, vars)
		if err != nil {
			return nil, fmt.Errorf("render prompt: %w", err)
		}
		req.Messages = []adapter.Message{{Role: string(model.RoleUser), Content: prompt}}
	}

	provider := providerFor(c.ai, flow.Model)
	if c.tokens != nil {
		n := 0
		for _, m := range req.Messages {
			n += c.tokens.Count(flow.Model, m.Content)
		}
		metrics.ObservePromptTokens(provider, flow.Model, n)
	}

	start := time.Now()
	raw, err := c.ai.StreamCompletion(ctx, req)
	if err == nil {
		raw, err = prime(raw)
	}
	metrics.ObserveFirstToken(provider, flow.Model, time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		log.Error().Err(err).Str("provider", provider).Str("model", flow.Model).Msg("model call failed")
		return nil, err
	}

	res := &TurnResult{Stream: raw, Provider: provider, Model: flow.Model}
	if !flow.Completion.Enabled() {
		return res, nil
	}

	opts := model.ExtractOptions{StripNonASCII: flow.Forward.StripNonASCII}
	if !model.Alternates(prior) {
		log.Warn().Int("messages", len(prior)).Msg("history does not alternate roles; question/answer pairing is positional")
	}

	res.Completion = flow.Completion.Evaluate(in.Messages, transcript)
	if res.Completion != model.CompletionNone {
		metrics.IncCompletion(flow.Name, string(res.Completion))
		log.Info().Str("strategy", string(res.Completion)).Msg("questionnaire complete")
		if flow.Forward.Endpoint != "" {
			// the step count includes the latest message as the final answer
			answered := prior
			if res.Completion == model.CompletionSteps {
				answered = in.Messages
			}
			res.Forwarded = c.fwd.Enqueue(ForwardJob{
				Flow:     flow.Name,
				Endpoint: flow.Forward.Endpoint,
				Token:    in.Token,
				UserID:   userID,
				Records:  model.ExtractQA(answered, opts),
			})
		}
	}

	if flow.Completion.Marker != "" {
		alreadyFired := res.Completion != model.CompletionNone
		res.Stream = newMarkerStream(res.Stream, flow.Completion.Marker, func(seen bool) {
			if !seen || alreadyFired {
				return
			}
			metrics.IncCompletion(flow.Name, string(model.CompletionMarker))
			log.Info().Str("strategy", string(model.CompletionMarker)).Msg("questionnaire complete")
			if flow.Forward.Endpoint == "" {
				return
			}
			// the reply being streamed follows the final answer, so it counts
			c.fwd.Enqueue(ForwardJob{
				Flow:     flow.Name,
				Endpoint: flow.Forward.Endpoint,
				Token:    in.Token,
				UserID:   userID,
				Records:  model.ExtractQA(in.Messages, opts),
			})
		})
	}
	return res, nil
}

// resolveUser decodes the caller's id. Flows that need the routine reject
// undecodable tokens; elsewhere the id is only used for logs and limits.
func (c *chatUC) resolveUser(flow model.Flow, token string) (string, error) {
	if token == "" {
		if flow.RequireToken {
			return "", domain.ErrMissingToken
		}
		return "", nil
	}
	if c.identity == nil {
		return "", nil
	}
	id, err := c.identity.UserID(token)
	if err != nil {
		if flow.RequireToken || flow.WorkoutContext {
			return "", err
		}
		return "", nil
	}
	return id, nil
}

func (c *chatUC) checkRate(ctx context.Context, flow model.Flow, userID, clientKey string, log *zerolog.Logger) error {
	if c.limiter == nil {
		return nil
	}
	key := userID
	if key == "" {
		key = clientKey
	}
	if key == "" {
		return nil
	}
	ok, err := c.limiter.Allow(ctx, "rl:"+flow.Name+":"+key)
	if err != nil {
		log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		return nil
	}
	if !ok {
		metrics.IncRateLimited(flow.Name)
		return domain.ErrRateLimited
	}
	return nil
}

// workoutContext renders the user's active routine for the prompt. Every
// failure degrades to "no active routine".
func (c *chatUC) workoutContext(ctx context.Context, token, userID string, log *zerolog.Logger) string {
	if userID == "" {
		metrics.IncWorkoutFetch("missing")
		return model.NoWorkoutRoutine
	}
	raw, err := c.fitness.GetUserWorkout(ctx, token, userID)
	if err != nil {
		result := "error"
		if errors.Is(err, domain.ErrNotFound) {
			result = "missing"
		}
		metrics.IncWorkoutFetch(result)
		log.Warn().Err(err).Msg("workout lookup failed, continuing without routine")
		return model.NoWorkoutRoutine
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		metrics.IncWorkoutFetch("missing")
		return model.NoWorkoutRoutine
	}
	metrics.IncWorkoutFetch("found")
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return string(trimmed)
	}
	return buf.String()
}

func toAdapterMessages(msgs []model.Message) []adapter.Message {
	out := make([]adapter.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, adapter.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func providerFor(ai adapter.AIServiceAdapter, modelName string) string {
	if p, ok := ai.(interface{ ProviderFor(string) string }); ok {
		return p.ProviderFor(modelName)
	}
	return ai.Name()
}
