/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

// Package resend is a minimal client of the Resend email API.
// Authentication, pacing, logging and metrics are provided by the http.Client passed to NewClient
// (see the httpclient package), the client itself only speaks the JSON protocol.
package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultBaseURL is the address of the Resend API.
const DefaultBaseURL = "https://api.resend.com"

// HeaderIdempotencyKey makes Resend ignore repeated sends of the same email.
const HeaderIdempotencyKey = "Idempotency-Key"

// ErrorNameRateLimitExceeded is returned by Resend when too many requests are sent.
const ErrorNameRateLimitExceeded = "rate_limit_exceeded"

const maxErrorBodySize = 64 * 1024

// ErrNoData is returned when Resend answers successfully but without the id of the email.
var ErrNoData = errors.New("no data returned")

// Email is a message to be sent.
type Email struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Tags    []Tag    `json:"tags,omitempty"`
}

// Tag is a name/value pair attached to the email and visible in webhooks.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SendResult is the result of a successful send.
type SendResult struct {
	ID string `json:"id"`
}

// APIError is an error answered by Resend.
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("resend API error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("resend API error: status %d, %s: %s", e.StatusCode, e.Name, e.Message)
}

// ClientOpts represents options for Client.
type ClientOpts struct {
	// BaseURL is DefaultBaseURL by default.
	BaseURL string
}

// Client sends emails through the Resend API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new Client. httpClient is expected to add the "Authorization: Bearer <api key>" header.
func NewClient(httpClient *http.Client, opts ClientOpts) (*Client, error) {
	if httpClient == nil {
		return nil, errors.New("http client is required")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// SendEmail sends the email. Non-2xx answers are returned as *APIError.
// An empty idempotencyKey disables deduplication on the Resend side.
func (c *Client) SendEmail(ctx context.Context, email Email, idempotencyKey string) (SendResult, error) {
	body, err := json.Marshal(email)
	if err != nil {
		return SendResult{}, fmt.Errorf("marshal email: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return SendResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set(HeaderIdempotencyKey, idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SendResult{}, parseAPIError(resp)
	}

	var res SendResult
	if err = json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return SendResult{}, fmt.Errorf("decode response: %w", err)
	}
	if res.ID == "" {
		return SendResult{}, ErrNoData
	}
	return res, nil
}

func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err := json.Unmarshal(data, apiErr); err != nil || (apiErr.Name == "" && apiErr.Message == "") {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}
