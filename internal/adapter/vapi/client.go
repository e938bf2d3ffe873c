// Package vapi is the client for the remote voice-assistant platform's REST API.
package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xiaot623/assistdesk/internal/config"
	"github.com/xiaot623/assistdesk/internal/domain"
	"github.com/xiaot623/assistdesk/internal/logger"
)

// RequestInfo describes one finished platform request.
type RequestInfo struct {
	Resource   string
	Method     string
	StatusCode int
	Outcome    string
	Duration   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithObserver registers a callback invoked after every request.
func WithObserver(fn func(RequestInfo)) Option {
	return func(c *Client) { c.observer = fn }
}

// WithLogger sets the request logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// Client is the platform REST client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	observer   func(RequestInfo)
	log        *logger.Logger

	assistants   *Resource[domain.AssistantConfig]
	calls        *Resource[domain.Call]
	phoneNumbers *Resource[domain.PhoneNumber]
	squads       *Resource[domain.Squad]
	tools        *Resource[domain.Tool]
}

// NewClient creates a new platform client.
func NewClient(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.assistants = newResource[domain.AssistantConfig](c, "assistant")
	c.calls = newResource[domain.Call](c, "call")
	c.phoneNumbers = newResource[domain.PhoneNumber](c, "phone-number")
	c.squads = newResource[domain.Squad](c, "squad")
	c.tools = newResource[domain.Tool](c, "tool")
	return c
}

// Assistants is the /assistant collection.
func (c *Client) Assistants() *Resource[domain.AssistantConfig] { return c.assistants }

// Calls is the /call collection.
func (c *Client) Calls() *Resource[domain.Call] { return c.calls }

// PhoneNumbers is the /phone-number collection.
func (c *Client) PhoneNumbers() *Resource[domain.PhoneNumber] { return c.phoneNumbers }

// Squads is the /squad collection.
func (c *Client) Squads() *Resource[domain.Squad] { return c.squads }

// Tools is the /tool collection.
func (c *Client) Tools() *Resource[domain.Tool] { return c.tools }

// do sends one request. body is JSON-encoded when non-nil; out receives the
// decoded response when non-nil.
func (c *Client) do(ctx context.Context, op, resource, method, path string, query url.Values, body, out any) (err error) {
	if cfgErr := config.CheckAPIKey(c.apiKey); cfgErr != nil {
		return &Error{Kind: KindConfiguration, Op: op, Err: cfgErr}
	}

	start := time.Now()
	statusCode := 0
	defer func() {
		info := RequestInfo{
			Resource:   resource,
			Method:     method,
			StatusCode: statusCode,
			Outcome:    Outcome(err),
			Duration:   time.Since(start),
		}
		c.log.Debug("platform request", logrus.Fields{
			"op":       op,
			"method":   method,
			"path":     path,
			"status":   statusCode,
			"outcome":  info.Outcome,
			"duration": info.Duration.String(),
		})
		if c.observer != nil {
			c.observer(info)
		}
	}()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()
	statusCode = resp.StatusCode

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(op, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(op, resp.StatusCode, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// setHeaders sets common headers for API requests.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

// Platform methods.

func (c *Client) ListAssistants(ctx context.Context, filter ListFilter) ([]domain.AssistantConfig, error) {
	return c.assistants.List(ctx, filter)
}

func (c *Client) GetAssistant(ctx context.Context, id string) (*domain.AssistantConfig, error) {
	return c.assistants.Get(ctx, id)
}

func (c *Client) CreateAssistant(ctx context.Context, payload any) (*domain.AssistantConfig, error) {
	return c.assistants.Create(ctx, payload)
}

func (c *Client) UpdateAssistant(ctx context.Context, id string, payload any) (*domain.AssistantConfig, error) {
	return c.assistants.Update(ctx, id, payload)
}

func (c *Client) DeleteAssistant(ctx context.Context, id string) error {
	return c.assistants.Delete(ctx, id)
}

func (c *Client) ListCalls(ctx context.Context, filter ListFilter) ([]domain.Call, error) {
	return c.calls.List(ctx, filter)
}

func (c *Client) GetCall(ctx context.Context, id string) (*domain.Call, error) {
	return c.calls.Get(ctx, id)
}

func (c *Client) CreateCall(ctx context.Context, req domain.CreateCallRequest) (*domain.Call, error) {
	return c.calls.Create(ctx, req)
}

func (c *Client) ListPhoneNumbers(ctx context.Context, filter ListFilter) ([]domain.PhoneNumber, error) {
	return c.phoneNumbers.List(ctx, filter)
}

func (c *Client) GetPhoneNumber(ctx context.Context, id string) (*domain.PhoneNumber, error) {
	return c.phoneNumbers.Get(ctx, id)
}

func (c *Client) CreatePhoneNumber(ctx context.Context, payload any) (*domain.PhoneNumber, error) {
	return c.phoneNumbers.Create(ctx, payload)
}

func (c *Client) UpdatePhoneNumber(ctx context.Context, id string, payload any) (*domain.PhoneNumber, error) {
	return c.phoneNumbers.Update(ctx, id, payload)
}

func (c *Client) DeletePhoneNumber(ctx context.Context, id string) error {
	return c.phoneNumbers.Delete(ctx, id)
}

func (c *Client) ListSquads(ctx context.Context, filter ListFilter) ([]domain.Squad, error) {
	return c.squads.List(ctx, filter)
}

func (c *Client) ListTools(ctx context.Context, filter ListFilter) ([]domain.Tool, error) {
	return c.tools.List(ctx, filter)
}
