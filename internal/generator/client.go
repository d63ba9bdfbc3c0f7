package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteAPIError is returned when an endpoint answers with a non-2xx status or with an
// `error` field in its body.
type RemoteAPIError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *RemoteAPIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote api %s: status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("remote api %s: status %d: %s", e.Endpoint, e.Status, e.Message)
}

// PersonalizeRequest is the body of the per-patient personalization endpoint.
type PersonalizeRequest struct {
	UserID     string         `json:"user_id"`
	ExerciseID string         `json:"exercise_id"`
	Profile    map[string]any `json:"profile"`
	CreatedBy  string         `json:"creado_por"`
}

// maxResponseBytes bounds how much of a remote answer is read.
const maxResponseBytes = 4 << 20

// Client talks to the exercise generation and personalization endpoints.
// Response bodies are opaque JSON values and are handed back as decoded.
type Client struct {
	GenerateURL    string
	PersonalizeURL string
	client         *http.Client
}

func NewClient(generateURL, personalizeURL string, timeout time.Duration) *Client {
	return &Client{
		GenerateURL:    generateURL,
		PersonalizeURL: personalizeURL,
		client:         &http.Client{Timeout: timeout},
	}
}

// Generate asks the remote service to create a new exercise from payload.
func (c *Client) Generate(ctx context.Context, payload map[string]any) (any, error) {
	return c.post(ctx, c.GenerateURL, payload)
}

// Personalize asks the remote service to adapt an exercise to a patient profile.
func (c *Client) Personalize(ctx context.Context, r PersonalizeRequest) (any, error) {
	return c.post(ctx, c.PersonalizeURL, r)
}

func (c *Client) post(ctx context.Context, endpoint string, body any) (any, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(data) > maxResponseBytes {
		return nil, fmt.Errorf("read response: body exceeds %d bytes", maxResponseBytes)
	}

	var out any
	decodeErr := json.Unmarshal(data, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteAPIError{Endpoint: endpoint, Status: resp.StatusCode, Message: errorMessage(out)}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}
	if msg := errorMessage(out); msg != "" {
		return nil, &RemoteAPIError{Endpoint: endpoint, Status: resp.StatusCode, Message: msg}
	}
	return out, nil
}

// errorMessage extracts a non-empty `error` field from a decoded object body.
// Arrays and scalars carry no error field.
func errorMessage(body any) string {
	obj, ok := body.(map[string]any)
	if !ok {
		return ""
	}
	v, ok := obj["error"]
	if !ok || v == nil {
		return ""
	}
	switch e := v.(type) {
	case string:
		return e
	case bool:
		if e {
			return "request failed"
		}
		return ""
	default:
		return fmt.Sprint(e)
	}
}
