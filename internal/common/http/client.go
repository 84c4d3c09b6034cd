// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"place-intelligence/internal/common/errors"
)

// maxBodyBytes bounds what we are willing to decode from an upstream.
const maxBodyBytes = 1 << 20

type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)
	return c.httpClient.Do(req)
}

// JSONRequest describes one JSON round trip against an upstream service.
type JSONRequest struct {
	Service string
	Method  string
	URL     string
	Body    interface{}
	Headers map[string]string
}

// DoJSON sends req and decodes a 2xx JSON answer into out. Failures come back as
// *errors.StandardError with one of the UPSTREAM_* codes.
func (c *Client) DoJSON(ctx context.Context, req JSONRequest, out interface{}) error {
	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return errors.NewUpstreamMalformedError(req.Service, err)
		}
		body = bytes.NewReader(raw)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return errors.NewUpstreamUnavailableError(req.Service, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(ctx, err) {
			return errors.NewUpstreamTimeoutError(req.Service, c.timeout)
		}
		return errors.NewUpstreamUnavailableError(req.Service, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.NewUpstreamUnauthorizedError(req.Service, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.NewUpstreamUnavailableError(req.Service,
			fmt.Errorf("status %d: %s", resp.StatusCode, string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		if isTimeout(ctx, err) {
			return errors.NewUpstreamTimeoutError(req.Service, c.timeout)
		}
		return errors.NewUpstreamMalformedError(req.Service, err)
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return stderrors.As(err, &te) && te.Timeout()
}
