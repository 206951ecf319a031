package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dtgoitia/healthsync/internal/domain"
)

// RemoteClient is the boundary the sync engine pulls from and pushes
// to. It is the only thing in the module that knows about HTTP;
// everything above it works with domain types.
type RemoteClient interface {
	CreateSymptom(ctx context.Context, s domain.Symptom) error
	UpdateSymptom(ctx context.Context, s domain.Symptom) error
	DeleteSymptom(ctx context.Context, id string, deletedAt time.Time) error
	CreateMetric(ctx context.Context, m domain.Metric) error
	UpdateMetric(ctx context.Context, m domain.Metric) error
	DeleteMetric(ctx context.Context, id string, deletedAt time.Time) error
	ReadAll(ctx context.Context, since time.Time) (ReadAllResult, error)
	PushAll(ctx context.Context, symptoms []domain.Symptom, metrics []domain.Metric) (PushAllResult, error)
	HealthCheck(ctx context.Context) error
}

// Client is the HTTP implementation of RemoteClient: a thin doRequest
// wrapper that marshals a body, sets auth, and retries transient
// failures with backoff.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient builds a Client with sane defaults. baseURL must not carry
// a trailing slash (settingsstore.SetEndpoint already trims it).
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     logger,
	}
}

// notFoundError marks a 404 response so callers (DeleteSymptom,
// DeleteMetric) can treat "already gone" as success: the desired end
// state already holds.
type notFoundError struct {
	path string
}

func (e *notFoundError) Error() string { return fmt.Sprintf("remote: %s: not found", e.path) }

// IsNotFound reports whether err is a 404 from the remote server.
func IsNotFound(err error) bool {
	_, ok := err.(*notFoundError)
	return ok
}

// doRequest sends one HTTP request, retrying transient failures
// (network errors and 5xx) with exponential backoff. A 4xx other than
// 404 is permanent and returned immediately; 404 is surfaced as
// *notFoundError so callers can special-case it.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("remote: marshal request: %w", err)
		}
		payload = b
	}

	var respBody []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("remote: build request: %w", err))
		}
		req.Header.Set("x-api-key", c.Token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			c.Logger.Debug("remote request failed, retrying", "method", method, "path", path, "err", err)
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("remote: read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(&notFoundError{path: path})
		case resp.StatusCode >= 500:
			return fmt.Errorf("remote: %s %s: server error %d: %s", method, path, resp.StatusCode, data)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("remote: %s %s: status %d: %s", method, path, resp.StatusCode, data))
		}
		respBody = data
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4)
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}
	return respBody, nil
}

// CreateSymptom pushes a newly-created symptom via POST /symptoms.
func (c *Client) CreateSymptom(ctx context.Context, s domain.Symptom) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/symptoms", toAPISymptom(s))
	return err
}

// UpdateSymptom pushes an edited symptom via PATCH /symptoms/{id}.
func (c *Client) UpdateSymptom(ctx context.Context, s domain.Symptom) error {
	_, err := c.doRequest(ctx, http.MethodPatch, "/symptoms/"+s.ID, toAPISymptom(s))
	return err
}

// DeleteSymptom issues DELETE /symptoms/{id}. A 404 from the server
// is treated as success.
func (c *Client) DeleteSymptom(ctx context.Context, id string, deletedAt time.Time) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/symptoms/"+id, nil)
	if err != nil && IsNotFound(err) {
		return nil
	}
	return err
}

// CreateMetric pushes a newly-recorded metric via POST /metrics.
func (c *Client) CreateMetric(ctx context.Context, m domain.Metric) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/metrics", toAPIMetric(m))
	return err
}

// UpdateMetric pushes an edited metric via PATCH /metrics/{id}.
func (c *Client) UpdateMetric(ctx context.Context, m domain.Metric) error {
	_, err := c.doRequest(ctx, http.MethodPatch, "/metrics/"+m.ID, toAPIMetric(m))
	return err
}

// DeleteMetric issues DELETE /metrics/{id}. A 404 is treated as
// success, same as DeleteSymptom.
func (c *Client) DeleteMetric(ctx context.Context, id string, deletedAt time.Time) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/metrics/"+id, nil)
	if err != nil && IsNotFound(err) {
		return nil
	}
	return err
}

// readAllResponse is the wire shape of GET /get-all.
type readAllResponse struct {
	Symptoms []apiSymptom `json:"symptoms"`
	Metrics  []apiMetric  `json:"metrics"`
}

// ReadAll pulls everything changed since the given anchor via
// GET /get-all?published_since=... A malformed individual entity is
// recorded in Errors, not treated as a fatal pull failure.
func (c *Client) ReadAll(ctx context.Context, since time.Time) (ReadAllResult, error) {
	path := "/get-all"
	if !since.IsZero() {
		path += "?published_since=" + since.UTC().Format(time.RFC3339)
	}
	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return ReadAllResult{}, err
	}

	var wire readAllResponse
	if err := json.Unmarshal(data, &wire); err != nil {
		return ReadAllResult{}, fmt.Errorf("remote: decode get-all response: %w", err)
	}

	var out ReadAllResult
	for _, w := range wire.Symptoms {
		s, err := decodeSymptom(w)
		if err != nil {
			out.Errors = append(out.Errors, err)
			continue
		}
		out.Symptoms = append(out.Symptoms, s)
	}
	for _, w := range wire.Metrics {
		m, err := decodeMetric(w)
		if err != nil {
			out.Errors = append(out.Errors, err)
			continue
		}
		out.Metrics = append(out.Metrics, m)
	}
	return out, nil
}

// pushAllRequest is the wire shape of POST /push-all.
type pushAllRequest struct {
	Symptoms []apiSymptom `json:"symptoms"`
	Metrics  []apiMetric  `json:"metrics"`
}

// pushAllResponse reports success/failure per entity, not just an
// overall status.
type pushAllResponse struct {
	Symptoms pushResultWire `json:"symptoms"`
	Metrics  pushResultWire `json:"metrics"`
}

type pushResultWire struct {
	Successful []string         `json:"successful"`
	Failed     []failedPushWire `json:"failed"`
}

type failedPushWire struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// PushAll sends every entity to POST /push-all in one call, for the
// bulk user-initiated push.
func (c *Client) PushAll(ctx context.Context, symptoms []domain.Symptom, metrics []domain.Metric) (PushAllResult, error) {
	req := pushAllRequest{
		Symptoms: make([]apiSymptom, len(symptoms)),
		Metrics:  make([]apiMetric, len(metrics)),
	}
	for i, s := range symptoms {
		req.Symptoms[i] = toAPISymptom(s)
	}
	for i, m := range metrics {
		req.Metrics[i] = toAPIMetric(m)
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/push-all", req)
	if err != nil {
		return PushAllResult{}, err
	}

	var wire pushAllResponse
	if err := json.Unmarshal(data, &wire); err != nil {
		return PushAllResult{}, fmt.Errorf("remote: decode push-all response: %w", err)
	}

	toResult := func(w pushResultWire) PushResult {
		r := PushResult{Succeeded: w.Successful}
		for _, f := range w.Failed {
			r.Failed = append(r.Failed, FailedPush{ID: f.ID, Error: f.Error})
		}
		return r
	}

	return PushAllResult{
		Symptoms: toResult(wire.Symptoms),
		Metrics:  toResult(wire.Metrics),
	}, nil
}

// HealthCheck pings GET /health to report server reachability.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	return err
}
