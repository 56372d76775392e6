// Package client talks to the agent console API over HTTP and follows its
// event stream over a websocket.
package client

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

	"github.com/dennisdiepolder/monti/console/internal/types"
)

// APIError is a non-2xx response from the console API
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("unexpected status code: %d, body: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Client provides access to one agent's console
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option customises a Client
type Option func(*Client)

// WithToken sends token as a bearer credential
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new console client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Code = ""
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// State returns the console snapshot
func (c *Client) State(ctx context.Context) (*types.ConsoleSnapshot, error) {
	var snap types.ConsoleSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/state", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SetStatus selects a presence status. reason is only used for not_ready.
func (c *Client) SetStatus(ctx context.Context, status types.PresenceStatus, reason types.NotReadyReason) (*types.ConsoleSnapshot, error) {
	body := map[string]string{"status": string(status)}
	if reason != "" {
		body["reason"] = string(reason)
	}
	var snap types.ConsoleSnapshot
	if err := c.do(ctx, http.MethodPost, "/api/status", body, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Answer accepts the ringing call
func (c *Client) Answer(ctx context.Context) (*types.SessionSnapshot, error) {
	var snap types.SessionSnapshot
	if err := c.do(ctx, http.MethodPost, "/api/calls/answer", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Reject declines the ringing call
func (c *Client) Reject(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/calls/reject", nil, nil)
}

// Dial starts an outbound call
func (c *Client) Dial(ctx context.Context, number string) (*types.SessionSnapshot, error) {
	var snap types.SessionSnapshot
	if err := c.do(ctx, http.MethodPost, "/api/calls/dial", map[string]string{"number": number}, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// HangUp ends the active call and returns its final state
func (c *Client) HangUp(ctx context.Context) (*types.SessionSnapshot, error) {
	var snap types.SessionSnapshot
	if err := c.do(ctx, http.MethodPost, "/api/calls/hangup", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ToggleHold holds or resumes the call and reports whether it is held
func (c *Client) ToggleHold(ctx context.Context) (bool, error) {
	var resp struct {
		Held bool `json:"held"`
	}
	err := c.do(ctx, http.MethodPost, "/api/calls/hold", nil, &resp)
	return resp.Held, err
}

// ToggleMute mutes or unmutes the call and reports whether it is muted
func (c *Client) ToggleMute(ctx context.Context) (bool, error) {
	var resp struct {
		Muted bool `json:"muted"`
	}
	err := c.do(ctx, http.MethodPost, "/api/calls/mute", nil, &resp)
	return resp.Muted, err
}

// Park parks the call and returns the slot number
func (c *Client) Park(ctx context.Context) (int, error) {
	var resp struct {
		Slot int `json:"slot"`
	}
	err := c.do(ctx, http.MethodPost, "/api/calls/park", nil, &resp)
	return resp.Slot, err
}

// Transfer hands the call off to dest
func (c *Client) Transfer(ctx context.Context, dest types.TransferDestination) error {
	return c.do(ctx, http.MethodPost, "/api/calls/transfer", dest, nil)
}

// Dispositions lists the disposition catalog
func (c *Client) Dispositions(ctx context.Context) ([]types.DispositionCode, error) {
	var codes []types.DispositionCode
	err := c.do(ctx, http.MethodGet, "/api/dispositions", nil, &codes)
	return codes, err
}

// SelectDisposition records the call outcome
func (c *Client) SelectDisposition(ctx context.Context, value string) (*types.DispositionCode, error) {
	var code types.DispositionCode
	if err := c.do(ctx, http.MethodPost, "/api/disposition", map[string]string{"value": value}, &code); err != nil {
		return nil, err
	}
	return &code, nil
}

// CompleteWrapUp leaves wrap-up with the selected disposition
func (c *Client) CompleteWrapUp(ctx context.Context) (*types.DispositionCode, error) {
	var resp struct {
		Disposition types.DispositionCode `json:"disposition"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/wrapup/complete", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Disposition, nil
}

// Destinations lists where calls can be transferred
func (c *Client) Destinations(ctx context.Context) ([]types.TransferDestination, error) {
	var dests []types.TransferDestination
	err := c.do(ctx, http.MethodGet, "/api/transfer-destinations", nil, &dests)
	return dests, err
}

// History returns completed calls for a day (YYYY-MM-DD); empty date means today
func (c *Client) History(ctx context.Context, date string) ([]types.CallRecord, error) {
	path := "/api/calls/history"
	if date != "" {
		path += "?date=" + url.QueryEscape(date)
	}
	var records []types.CallRecord
	err := c.do(ctx, http.MethodGet, path, nil, &records)
	return records, err
}
