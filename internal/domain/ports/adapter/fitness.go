package adapter

import (
	"context"
	"encoding/json"
)

// SubmitResult is what the fitness API answered to a forwarded payload.
type SubmitResult struct {
	StatusCode int
	Body       json.RawMessage
}

// FitnessAPI is the port for the external fitness-profile service. The
// caller's bearer token is passed through unchanged.
type FitnessAPI interface {
	// GetUserWorkout returns the user's active routine as JSON.
	GetUserWorkout(ctx context.Context, token, userID string) (json.RawMessage, error)
	// Submit posts payload to endpoint (e.g. "/answers").
	Submit(ctx context.Context, endpoint, token string, payload []byte) (SubmitResult, error)
}
