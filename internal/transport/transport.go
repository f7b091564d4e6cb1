package transport

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

	appErrors "github.com/noah-isme/sma-professor-gateway/pkg/errors"
)

// maxErrorBody bounds how much of a failed response body is kept for logs.
const maxErrorBody = 4 << 10

// Request describes a single call against the professor backend.
type Request struct {
	Method  string
	URL     string
	Route   string
	Body    interface{}
	Headers http.Header
	Query   url.Values
}

// Response is the decoded-later payload of a successful call.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Transport performs one request and returns exactly one response or error.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Observer receives timing for every upstream exchange.
type Observer interface {
	ObserveUpstreamRequest(method, route string, status int, duration time.Duration)
}

// HTTPTransport implements Transport over net/http with JSON bodies.
type HTTPTransport struct {
	client   *http.Client
	observer Observer
}

// NewHTTPTransport constructs an HTTPTransport. A nil client gets a default
// client with the provided timeout.
func NewHTTPTransport(client *http.Client, timeout time.Duration, observer Observer) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPTransport{client: client, observer: observer}
}

// Do sends req. Non-2xx statuses are reported as TRANSPORT_FAILURE errors
// carrying the upstream status.
func (t *HTTPTransport) Do(ctx context.Context, req Request) (*Response, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	target, err := url.Parse(req.URL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "invalid request url")
	}
	if len(req.Query) > 0 {
		q := target.Query()
		for key, values := range req.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "encode request body")
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "create request")
	}
	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	route := req.Route
	if route == "" {
		route = target.Path
	}

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		t.observe(method, route, 0, time.Since(start))
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, fmt.Sprintf("%s %s failed", method, route))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	t.observe(method, route, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(method, route, resp.StatusCode, payload)
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: payload}, nil
}

func (t *HTTPTransport) observe(method, route string, status int, d time.Duration) {
	if t.observer != nil {
		t.observer.ObserveUpstreamRequest(method, route, status, d)
	}
}

func statusError(method, route string, status int, payload []byte) *appErrors.Error {
	if len(payload) > maxErrorBody {
		payload = payload[:maxErrorBody]
	}
	cause := fmt.Errorf("unexpected status %d: %s", status, strings.TrimSpace(string(payload)))

	e := appErrors.Wrap(cause, appErrors.ErrTransport.Code, appErrors.ErrTransport.Status, fmt.Sprintf("%s %s failed", method, route))
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		e.Status = status
	}
	e.UpstreamStatus = status
	return e
}
