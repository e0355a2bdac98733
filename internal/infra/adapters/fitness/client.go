// File: internal/infra/adapters/fitness/client.go
package fitness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"coach-connect/internal/domain"
	"coach-connect/internal/domain/ports/adapter"
)

var _ adapter.FitnessAPI = (*Client)(nil)

const maxResponseBytes = 1 << 20

// Client talks to the workout API that owns user profiles and routines.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a client for baseURL, e.g. https://ia-workout-api.fly.dev/api.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid fitness api url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) endpoint(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// GetUserWorkout calls GET /workout/user/{id}. Any non-2xx answer is
// reported as domain.ErrNotFound.
func (c *Client) GetUserWorkout(ctx context.Context, token, userID string) (json.RawMessage, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/workout/user/"+url.PathEscape(userID)), nil)
	if err != nil {
		return nil, err
	}
	setAuth(req, token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get workout: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read workout: %v", domain.ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: workout api returned %d", domain.ErrNotFound, resp.StatusCode)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: workout response is not JSON", domain.ErrUpstream)
	}
	return json.RawMessage(body), nil
}

// Submit posts payload to endpoint with the caller's credential. The result
// is returned even for non-2xx answers so it can be logged.
func (c *Client) Submit(ctx context.Context, endpoint, token string, payload []byte) (adapter.SubmitResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(endpoint), bytes.NewReader(payload))
	if err != nil {
		return adapter.SubmitResult{}, err
	}
	setAuth(req, token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return adapter.SubmitResult{}, fmt.Errorf("%w: post %s: %v", domain.ErrUpstream, endpoint, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	res := adapter.SubmitResult{StatusCode: resp.StatusCode}
	if err != nil {
		return res, fmt.Errorf("%w: read response: %v", domain.ErrUpstream, err)
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if !json.Valid(body) {
			return res, fmt.Errorf("%w: response is not JSON", domain.ErrUpstream)
		}
		res.Body = json.RawMessage(body)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return res, &domain.StatusError{Code: resp.StatusCode, Err: errors.New("fitness api rejected the payload")}
	}
	return res, nil
}

// setAuth forwards the token exactly as received, including an empty one.
func setAuth(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}
