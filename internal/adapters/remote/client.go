package remote

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

	"github.com/google/uuid"

	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

const maxResponseBytes = 4 << 20

const (
	sessionsPath = "/v1/sessions"

	headerRequestID      = "X-Request-ID"
	headerIdempotencyKey = "Idempotency-Key"
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StatusError is a non-2xx answer from the session service.
type StatusError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return domain.ErrAuthenticationRequired
	}
	return nil
}

// Client talks to the remote extraction service over HTTP.
type Client struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Tokens         TokenSource
	// NewID generates request and idempotency ids. Defaults to uuid v4.
	NewID func() string
}

var _ ports.SessionAPI = (*Client)(nil)

type createSessionRequest struct {
	InputType string `json:"input_type"`
	Text      string `json:"text,omitempty"`
	URL       string `json:"url,omitempty"`
	FileName  string `json:"file_name,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
	Data      []byte `json:"data,omitempty"`
}

type createSessionResponse struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
}

type statusResponse struct {
	Status       string `json:"status"`
	Title        string `json:"title"`
	Icon         string `json:"icon"`
	ErrorMessage string `json:"error_message"`
}

type eventsResponse struct {
	Events []domain.Event `json:"events"`
	Count  int            `json:"count"`
}

type pushEventsRequest struct {
	EventIDs []string `json:"event_ids"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) CreateSession(ctx context.Context, content ports.Content) (domain.SessionID, error) {
	body := createSessionRequest{
		InputType: string(content.InputType),
		Text:      content.Text,
		URL:       content.URL,
		FileName:  content.FileName,
		MimeType:  content.MimeType,
		Data:      content.Data,
	}

	var payload createSessionResponse
	if err := c.do(ctx, http.MethodPost, sessionsPath, body, true, &payload); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	id := strings.TrimSpace(payload.ID)
	if id == "" {
		id = strings.TrimSpace(payload.SessionID)
	}
	if id == "" {
		return "", errors.New("create session: response missing session id")
	}
	return domain.SessionID(id), nil
}

func (c *Client) GetSessionStatus(ctx context.Context, id domain.SessionID) (ports.RemoteStatus, error) {
	var payload statusResponse
	if err := c.do(ctx, http.MethodGet, sessionPath(id, ""), nil, false, &payload); err != nil {
		return ports.RemoteStatus{}, fmt.Errorf("get session %s status: %w", id, err)
	}

	return ports.RemoteStatus{
		Status:       payload.Status,
		Title:        payload.Title,
		Icon:         payload.Icon,
		ErrorMessage: payload.ErrorMessage,
	}, nil
}

func (c *Client) GetSessionEvents(ctx context.Context, id domain.SessionID) (ports.RemoteEvents, error) {
	var payload eventsResponse
	if err := c.do(ctx, http.MethodGet, sessionPath(id, "events"), nil, false, &payload); err != nil {
		return ports.RemoteEvents{}, fmt.Errorf("get session %s events: %w", id, err)
	}

	return ports.RemoteEvents{Events: payload.Events, Count: payload.Count}, nil
}

func (c *Client) PushEvents(ctx context.Context, id domain.SessionID, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return errors.New("push events: no event ids")
	}
	if err := c.do(ctx, http.MethodPost, sessionPath(id, "push"), pushEventsRequest{EventIDs: eventIDs}, true, nil); err != nil {
		return fmt.Errorf("push session %s events: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method string, path string, body any, idempotent bool, out any) error {
	endpoint, err := buildAPIURL(c.BaseURL, path)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := c.newID()
	req.Header.Set(headerRequestID, requestID)
	if idempotent {
		req.Header.Set(headerIdempotencyKey, c.newID())
	}
	if c.Tokens != nil {
		token, err := c.Tokens.Token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp, requestID)
	}
	if out == nil {
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := c.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	return context.WithTimeout(ctx, requestTimeout)
}

func (c *Client) newID() string {
	if c.NewID != nil {
		return c.NewID()
	}
	return uuid.NewString()
}

func decodeError(resp *http.Response, requestID string) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode, RequestID: requestID}

	var payload errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err == nil {
		statusErr.Message = payload.Message
		if statusErr.Message == "" {
			statusErr.Message = payload.Error
		}
	}
	return statusErr
}

func sessionPath(id domain.SessionID, suffix string) string {
	path := sessionsPath + "/" + url.PathEscape(string(id))
	if suffix != "" {
		path += "/" + suffix
	}
	return path
}

func buildAPIURL(baseURL string, path string) (string, error) {
	if baseURL == "" {
		return "", errors.New("api base url is required")
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("api base url host is required")
	}

	endpoint, err := parsed.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse api path: %w", err)
	}
	return endpoint.String(), nil
}
