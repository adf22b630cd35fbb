package simproto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ProtocolError wraps a non-2xx response from a runner (spec §7's
// "protocol errors": non-2xx from a runner, unparseable event — fatal for
// the run).
type ProtocolError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s %s: status=%d body=%s", e.Method, e.URL, e.Status, e.Body)
}

// Client is a tiny wrapper over net/http used by every HttpRunner to talk to
// a module, and by modules that themselves fan out (e.g. a planner facade).
// No ecosystem HTTP client in the example corpus goes beyond the standard
// library for plain request/response calls, so this stays on net/http; see
// DESIGN.md.
type Client struct {
	Base       string
	HTTPClient *http.Client
}

// NewClient builds a Client with the given base URL and total-timeout
// default (spec §5: broker->module calls default to 5 minutes, setup may
// use up to 1 hour).
func NewClient(base string, timeout time.Duration) *Client {
	return &Client{Base: base, HTTPClient: &http.Client{Timeout: timeout}}
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProtocolError{Method: method, URL: c.Base + path, Status: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// GetJSON issues a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	b, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if out == nil || len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}

// PostJSON issues a POST with a JSON body and decodes the JSON response into out.
func (c *Client) PostJSON(ctx context.Context, path string, body any, out any) error {
	b, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}
