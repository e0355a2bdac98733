package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"coach-connect/internal/domain"
	"coach-connect/internal/domain/model"
	"coach-connect/internal/infra/logging"
	"coach-connect/internal/infra/metrics"
	"coach-connect/internal/usecase"
)

type chatRequest struct {
	Messages []model.Message `json:"messages"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) chatHandler(flow model.Flow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithFlow(r.Context(), flow.Name)
		log := logging.With(ctx, s.log)

		token := bearerToken(r)
		if flow.RequireToken && token == "" {
			s.fail(w, flow, domain.ErrMissingToken)
			return
		}

		if s.cfg.MaxBodyBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.fail(w, flow, fmt.Errorf("%w: invalid request body", domain.ErrInvalidArgument))
			return
		}

		res, err := s.chatUC.Turn(ctx, flow, usecase.TurnInput{
			Messages:  req.Messages,
			Token:     token,
			ClientKey: clientKey(r),
		})
		if err != nil {
			s.fail(w, flow, err)
			return
		}
		defer res.Stream.Close()

		n, err := newStreamWriter(w, flow.StreamProtocol).pipe(res.Stream)
		metrics.AddStreamChunks(res.Provider, res.Model, n)
		if err != nil {
			metrics.IncChatTurn(flow.Name, "stream_error")
			log.Warn().Err(err).Int("chunks", n).Msg("stream ended early")
			return
		}
		metrics.IncChatTurn(flow.Name, "ok")
	}
}

func (s *Server) fail(w http.ResponseWriter, flow model.Flow, err error) {
	code := domain.StatusOf(err)
	metrics.IncChatTurn(flow.Name, strconv.Itoa(code))
	if code >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("flow", flow.Name).Int("status", code).Msg("chat turn failed")
	}
	writeJSON(w, code, errorBody{Error: publicMessage(err, code)})
}

// publicMessage is the text put in the {"error"} body.
func publicMessage(err error, code int) string {
	switch {
	case errors.Is(err, domain.ErrMissingToken):
		return "Token missing"
	case errors.Is(err, domain.ErrInvalidToken):
		return "Invalid token format"
	case errors.Is(err, domain.ErrRateLimited):
		return "Too many requests"
	}
	var se *domain.StatusError
	if code == http.StatusInternalServerError && !errors.As(err, &se) && !errors.Is(err, domain.ErrInvalidArgument) {
		return "Internal server error"
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
