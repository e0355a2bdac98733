package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"

	"coach-connect/internal/domain/model"
)

//go:embed templates/chat.html
var pageFS embed.FS

var chatPage = template.Must(template.ParseFS(pageFS, "templates/chat.html"))

type pageData struct {
	Title    string
	Greeting string
	Endpoint string
	Protocol string
}

// pageHandler serves the chat page of a flow. The page reads ?token= itself
// and sends it as a bearer header on every turn.
func pageHandler(flow model.Flow, log *zerolog.Logger) http.HandlerFunc {
	data := pageData{
		Title:    "Coach",
		Greeting: flow.Greeting,
		Endpoint: flow.Path,
		Protocol: flow.StreamProtocol,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := chatPage.Execute(w, data); err != nil {
			log.Error().Err(err).Str("flow", flow.Name).Msg("render chat page")
		}
	}
}
