package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiTokensIn,
		aiFirstTokenLatencyMs,
		aiStreamChunksTotal,
	)
}

var (
	aiTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_in",
			Help: "Sum of prompt (input) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiFirstTokenLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_first_token_latency_ms",
			Help:    "Time from model call to first streamed chunk in milliseconds.",
			Buckets: []float64{50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
		},
		[]string{"provider", "model", "success"},
	)

	aiStreamChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_stream_chunks_total",
			Help: "Chunks streamed back to clients per provider/model.",
		},
		[]string{"provider", "model"},
	)
)

func ObservePromptTokens(provider, model string, tokens int) {
	aiTokensIn.WithLabelValues(norm(provider), norm(model)).Add(float64(tokens))
}

func ObserveFirstToken(provider, model string, latencyMs int64, success bool) {
	aiFirstTokenLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latencyMs))
}

func AddStreamChunks(provider, model string, n int) {
	aiStreamChunksTotal.WithLabelValues(norm(provider), norm(model)).Add(float64(n))
}
