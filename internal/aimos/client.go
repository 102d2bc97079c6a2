// Package aimos talks to AIM OS, the clinic network's downstream
// case-management system: outbound event, intake and booking handoffs plus the
// signed inbound status webhook.
package aimos

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

	"github.com/aim-injury/aim-intake/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultBaseURL = "https://api.aimos.ca"
	defaultTimeout = 5 * time.Second
)

// ErrNotConfigured is returned by calls that need a response when no API key is set.
var ErrNotConfigured = errors.New("aimos: api key not configured")

// ErrIntakeNotFound is matched by IntakeStatusUpdater errors for an unknown
// intake id. The webhook acknowledges those so AIM OS stops retrying.
var ErrIntakeNotFound = errors.New("aimos: intake not found")

// APIError reports a non-2xx response.
type APIError struct {
	StatusCode int
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("aimos: %s returned status %d", e.Path, e.StatusCode)
}

// Config controls the client.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls the AIM OS REST API. Calls are bounded by the configured timeout
// and never retried here; the outbox handles redelivery of events.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
	tracer     trace.Tracer
}

func NewClient(cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	} else if httpClient.Timeout <= 0 {
		bounded := *httpClient
		bounded.Timeout = timeout
		httpClient = &bounded
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: httpClient,
		logger:     logger,
		tracer:     otel.Tracer("aim.internal.aimos"),
	}
}

// Enabled reports whether credentials are configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// SendEvent forwards one event. Without credentials it reports skipped.
func (c *Client) SendEvent(ctx context.Context, evt Event) (Status, error) {
	if !c.Enabled() {
		c.logger.Debug("aimos api key not configured, skipping event", "event_type", evt.EventType)
		return Status{Status: StatusSkipped}, nil
	}
	var out Status
	if err := c.do(ctx, http.MethodPost, "/events", evt, &out); err != nil {
		return Status{}, err
	}
	return out, nil
}

// SendEventBatch forwards several events in one call.
func (c *Client) SendEventBatch(ctx context.Context, events []Event) (Status, error) {
	if !c.Enabled() {
		return Status{Status: StatusSkipped}, nil
	}
	var out Status
	if err := c.do(ctx, http.MethodPost, "/events/batch", map[string]any{"events": events}, &out); err != nil {
		return Status{}, err
	}
	return out, nil
}

// InitiateIntake opens an intake case.
func (c *Client) InitiateIntake(ctx context.Context, handoff IntakeHandoff) (IntakeResponse, error) {
	if !c.Enabled() {
		return IntakeResponse{}, ErrNotConfigured
	}
	var out IntakeResponse
	if err := c.do(ctx, http.MethodPost, "/intake/init", handoff, &out); err != nil {
		return IntakeResponse{}, err
	}
	return out, nil
}

// ConfirmBooking forwards a self-booked request. Without credentials it reports skipped.
func (c *Client) ConfirmBooking(ctx context.Context, confirmation BookingConfirmation) (Status, error) {
	if !c.Enabled() {
		return Status{Status: StatusSkipped}, nil
	}
	var out Status
	if err := c.do(ctx, http.MethodPost, "/booking/confirm", confirmation, &out); err != nil {
		return Status{}, err
	}
	return out, nil
}

// GetAIContext fetches eligibility guidance for a persona code and optional program.
func (c *Client) GetAIContext(ctx context.Context, persona, program string) (AIContext, error) {
	if !c.Enabled() {
		return AIContext{}, ErrNotConfigured
	}
	q := url.Values{}
	q.Set("persona", persona)
	if program != "" {
		q.Set("program", program)
	}
	var out AIContext
	if err := c.do(ctx, http.MethodGet, "/ai/context?"+q.Encode(), nil, &out); err != nil {
		return AIContext{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	ctx, span := c.tracer.Start(ctx, "aimos.request")
	defer span.End()
	span.SetAttributes(attribute.String("http.method", method), attribute.String("aimos.path", path))

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("aimos: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("aimos: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		c.logger.Error("aimos request failed", "path", path, "error", err)
		return fmt.Errorf("aimos: %s: %w", path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Path: path}
		span.RecordError(apiErr)
		c.logger.Error("aimos returned error status", "path", path, "status", resp.StatusCode)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("aimos: decode %s response: %w", path, err)
	}
	return nil
}
