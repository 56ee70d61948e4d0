// Package oracle talks to the remote face comparison service. The service takes
// two images and answers whether they show the same person; how it decides is
// its own business.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

const comparePath = "/compare"

// Result is the comparison verdict.
type Result struct {
	Match      bool
	Confidence float64
}

// compareResponse mirrors the service's JSON. Match is a pointer so a body
// without it is rejected rather than read as false.
type compareResponse struct {
	Match      *bool    `json:"match"`
	Confidence *float64 `json:"confidence"`
}

// Client is safe for concurrent use; it holds no per-call state.
type Client struct {
	http *resty.Client
}

// Option configures a Client.
type Option func(*Client)

// WithRestyClient replaces the underlying HTTP client.
func WithRestyClient(c *resty.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// New builds a client for the service at baseURL. Timeouts come from the
// caller's context; the client performs no retries.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("oracle base url is required")
	}
	c := &Client{http: resty.New()}
	for _, opt := range opts {
		opt(c)
	}
	c.http.SetBaseURL(strings.TrimRight(baseURL, "/")).SetRetryCount(0)
	return c, nil
}

// Compare sends the reference and captured images and returns the verdict.
func (c *Client) Compare(ctx context.Context, reference, captured []byte) (Result, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartField("image1", "previsit.jpg", "image/jpeg", bytes.NewReader(reference)).
		SetMultipartField("image2", "facecapture.jpg", "image/jpeg", bytes.NewReader(captured)).
		Post(comparePath)
	if err != nil {
		return Result{}, newError(CategoryUnavailable, "compare request failed", err)
	}
	if resp.IsError() {
		return Result{}, &Error{
			Category:   CategoryBadResponse,
			Message:    fmt.Sprintf("compare returned status %d", resp.StatusCode()),
			StatusCode: resp.StatusCode(),
		}
	}

	var body compareResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return Result{}, newError(CategoryBadResponse, "could not decode compare response", err)
	}
	if body.Match == nil {
		return Result{}, newError(CategoryBadResponse, "compare response missing match", nil)
	}

	result := Result{Match: *body.Match}
	if body.Confidence != nil {
		result.Confidence = *body.Confidence
	}
	return result, nil
}
