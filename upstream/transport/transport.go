// Package transport is the shared HTTP plumbing for every upstream client:
// JSON and form request helpers, status-to-taxonomy mapping, and the
// contract-version fallback caller.
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

	"github.com/bedrocktools/mcgate/internal/apierr"
	"github.com/bedrocktools/mcgate/internal/obs"
)

// Doer abstracts *http.Client so tests can substitute a stub.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewHTTPClient returns the standard client every upstream shares: one
// configured timeout, default transport.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Request describes one upstream call. Exactly one of Body (JSON-marshaled)
// or Form (URL-encoded) may be set.
type Request struct {
	Method string
	URL    string
	Header map[string]string
	Query  url.Values
	Body   any
	Form   url.Values
}

// Response is a fully read upstream response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the response body into target.
func (r *Response) Decode(target any) error {
	if err := json.Unmarshal(r.Body, target); err != nil {
		return apierr.Wrap(apierr.KindUpstream, "malformed upstream response body", err)
	}
	return nil
}

// Do performs one upstream round trip. Non-2xx statuses are mapped into the
// gateway error taxonomy with the raw body attached as details; network
// failures become upstream faults. The upstream name labels metrics and
// error messages.
func Do(ctx context.Context, doer Doer, upstream string, req Request) (*Response, error) {
	var bodyReader io.Reader
	contentType := ""
	switch {
	case req.Body != nil:
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, apierr.Wrap(apierr.KindClient, "failed to encode request body", err)
		}
		bodyReader = bytes.NewReader(encoded)
		contentType = "application/json"
	case req.Form != nil:
		bodyReader = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	callURL := req.URL
	if len(req.Query) > 0 {
		separator := "?"
		if strings.Contains(callURL, "?") {
			separator = "&"
		}
		callURL += separator + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, callURL, bodyReader)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindClient, "failed to create request", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	for key, value := range req.Header {
		httpReq.Header.Set(key, value)
	}

	start := time.Now()
	httpResp, err := doer.Do(httpReq)
	if err != nil {
		obs.ObserveUpstream(upstream, 0, time.Since(start))
		return nil, apierr.Wrap(apierr.KindUpstream, fmt.Sprintf("%s request failed", upstream), err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	obs.ObserveUpstream(upstream, httpResp.StatusCode, time.Since(start))
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUpstream, fmt.Sprintf("%s response read failed", upstream), err)
	}

	resp := &Response{Status: httpResp.StatusCode, Header: httpResp.Header, Body: body}
	if httpResp.StatusCode >= 400 {
		return resp, apierr.FromStatus(httpResp.StatusCode, upstream, body)
	}
	return resp, nil
}

// DoJSON performs the call and decodes a 2xx body into target.
func DoJSON(ctx context.Context, doer Doer, upstream string, req Request, target any) (*Response, error) {
	resp, err := Do(ctx, doer, upstream, req)
	if err != nil {
		return resp, err
	}
	if target != nil && len(resp.Body) > 0 {
		if err := resp.Decode(target); err != nil {
			return resp, err
		}
	}
	return resp, nil
}
