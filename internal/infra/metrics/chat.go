package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(chatTurnsTotal, completionDetectedTotal, rateLimitTriggeredTotal, workoutFetchTotal)
}

var (
	chatTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Chat turns handled per flow, labeled by HTTP status.",
		},
		[]string{"flow", "status"},
	)

	completionDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completion_detected_total",
			Help: "Turns on which a questionnaire was detected as complete.",
		},
		[]string{"flow", "strategy"}, // sentinel|marker|steps
	)

	rateLimitTriggeredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_triggered_total",
			Help: "Requests rejected by the rate limiter.",
		},
		[]string{"flow"},
	)

	workoutFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workout_fetch_total",
			Help: "Workout context lookups for the edit flow.",
		},
		[]string{"result"}, // found|missing|error
	)
)

func IncChatTurn(flow, status string) {
	chatTurnsTotal.WithLabelValues(norm(flow), norm(status)).Inc()
}

func IncCompletion(flow, strategy string) {
	completionDetectedTotal.WithLabelValues(norm(flow), norm(strategy)).Inc()
}

func IncRateLimited(flow string) {
	rateLimitTriggeredTotal.WithLabelValues(norm(flow)).Inc()
}

func IncWorkoutFetch(result string) {
	workoutFetchTotal.WithLabelValues(norm(result)).Inc()
}
