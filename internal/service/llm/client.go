// Package llm provides the client for the remote guide-generation proxy:
// a non-streaming call used by background prefetch, a streaming call used by
// the interactive path, and the note-analysis action.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"rapport-backend/internal/config"
	"rapport-backend/internal/domain"
	appErrors "rapport-backend/pkg/errors"
)

const (
	actionGenerateGuide = "generateGuide"
	actionAnalyzeNote   = "analyzeNote"
)

// GuideRequest is the full request payload for the generation endpoint.
// The builder assembles it; the client only transports it.
type GuideRequest struct {
	Action  string       `json:"action"`
	Stream  bool         `json:"stream,omitempty"`
	Payload GuidePayload `json:"payload"`
}

// GuidePayload carries all contextual prompt input.
type GuidePayload struct {
	User      domain.UserProfile `json:"user"`
	Contact   domain.Contact     `json:"contact"`
	Attendees []domain.Contact   `json:"attendees,omitempty"`
	Meeting   MeetingContext     `json:"meeting"`
	// HistoryNotes is the aggregated prior-meeting text. When empty,
	// FirstMeeting must be set so the model does not fabricate familiarity.
	HistoryNotes string `json:"historyNotes"`
	FirstMeeting bool   `json:"firstMeeting"`
}

// MeetingContext is the meeting metadata embedded in the prompt. Date is a
// human-localized string, not a raw timestamp; the history aggregator and the
// builder share one localization so continuity reasoning stays coherent.
type MeetingContext struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	Location string `json:"location,omitempty"`
}

// NoteAnalysis is the result of the analyzeNote action.
type NoteAnalysis struct {
	BusinessInterests  []string `json:"businessInterests"`
	LifestyleInterests []string `json:"lifestyleInterests"`
	Personality        string   `json:"personality"`
}

type noteRequest struct {
	Action  string      `json:"action"`
	Payload notePayload `json:"payload"`
}

type notePayload struct {
	Note string `json:"note"`
}

// Client calls the remote generation proxy. All calls go through a circuit
// breaker so a failing endpoint does not get hammered by prefetch.
type Client struct {
	httpClient       *http.Client
	streamClient     *http.Client
	endpoint         string
	apiKey           string
	breaker          *gobreaker.CircuitBreaker
	logger           *zap.Logger
	onStreamFragment func()
}

// NewClient creates a generation client from configuration.
func NewClient(cfg config.Generation, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "generation-endpoint",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Only trip if we have enough requests to make a decision
			if counts.Requests < cfg.Breaker.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.Breaker.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		// The streaming client's timeout covers the whole stream lifetime.
		streamClient: &http.Client{Timeout: cfg.StreamTimeout},
		endpoint:     cfg.Endpoint,
		apiKey:       cfg.APIKey,
		breaker:      breaker,
		logger:       logger,
	}
}

// SetStreamFragmentHook registers a callback invoked once per received
// stream fragment, used for metrics.
func (c *Client) SetStreamFragmentHook(fn func()) {
	c.onStreamFragment = fn
}

// GenerateGuide executes the non-streaming generation call and returns a
// complete guide with defaults filled for any missing sub-field.
func (c *Client) GenerateGuide(ctx context.Context, req GuideRequest) (*domain.SmallTalkGuide, error) {
	req.Action = actionGenerateGuide
	req.Stream = false

	result, err := c.breaker.Execute(func() (any, error) {
		return c.generateOnce(ctx, req)
	})
	if err != nil {
		return nil, mapBreakerError(err)
	}
	return result.(*domain.SmallTalkGuide), nil
}

func (c *Client) generateOnce(ctx context.Context, req GuideRequest) (*domain.SmallTalkGuide, error) {
	body, err := c.post(ctx, c.httpClient, req)
	if err != nil {
		return nil, err
	}

	// The proxy answers HTTP 200 even on logical errors, so the body-level
	// error field must be checked in addition to the status.
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err == nil && probe.Error != "" {
		return nil, appErrors.NewTransport(probe.Error, nil)
	}

	guide, err := parseFinal(string(body))
	if err != nil {
		return nil, err
	}
	return guide, nil
}

// AnalyzeNote extracts interest keywords and a personality summary from a
// free-text meeting note.
func (c *Client) AnalyzeNote(ctx context.Context, note string) (*NoteAnalysis, error) {
	req := noteRequest{
		Action:  actionAnalyzeNote,
		Payload: notePayload{Note: note},
	}

	result, err := c.breaker.Execute(func() (any, error) {
		body, err := c.post(ctx, c.httpClient, req)
		if err != nil {
			return nil, err
		}

		var probe struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &probe); err == nil && probe.Error != "" {
			return nil, appErrors.NewTransport(probe.Error, nil)
		}

		var analysis NoteAnalysis
		if err := json.Unmarshal([]byte(stripFences(string(body))), &analysis); err != nil {
			return nil, appErrors.NewMalformedResponse("failed to parse note analysis", err)
		}
		return &analysis, nil
	})
	if err != nil {
		return nil, mapBreakerError(err)
	}
	return result.(*NoteAnalysis), nil
}

// post sends one JSON request and returns the full response body.
func (c *Client) post(ctx context.Context, client *http.Client, payload any) ([]byte, error) {
	resp, err := c.open(ctx, client, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, appErrors.NewTransport("failed to read response body", err)
	}
	return body, nil
}

// open sends one JSON request and returns the live response after checking
// the HTTP status. The caller owns the body.
func (c *Client) open(ctx context.Context, client *http.Client, payload any) (*http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, appErrors.NewInternal("failed to encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, appErrors.NewInternal("failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, appErrors.NewTransport("generation endpoint unreachable", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := readErrorMessage(resp.Body)
		resp.Body.Close()
		return nil, appErrors.NewTransport(
			fmt.Sprintf("generation endpoint returned %d: %s", resp.StatusCode, message), nil)
	}

	c.logger.Debug("Generation endpoint responded",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return resp, nil
}

// readErrorMessage pulls a server-supplied message out of an error response
// body, falling back to the raw text.
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return "no error detail"
	}
	var probe struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err == nil && probe.Error != "" {
		return probe.Error
	}
	return string(data)
}

// mapBreakerError converts circuit breaker rejections into transport errors;
// everything else passes through unchanged.
func mapBreakerError(err error) error {
	switch err {
	case gobreaker.ErrOpenState, gobreaker.ErrTooManyRequests:
		return appErrors.NewTransport("generation endpoint temporarily unavailable", err)
	default:
		return err
	}
}
