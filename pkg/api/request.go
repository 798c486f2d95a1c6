package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// envelope is the backend's uniform response wrapper. A missing code
// field decodes to zero and counts as success; the legacy /db/connect
// endpoint relies on that.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type httpRequest struct {
	method      string
	baseURL     string
	endpoint    string
	headers     map[string]string
	queryParams map[string]string
	json        interface{}
	client      *http.Client
}

func newHTTPRequest(client *http.Client, method, baseURL, endpoint string) *httpRequest {
	return &httpRequest{
		method:   method,
		baseURL:  baseURL,
		endpoint: endpoint,
		client:   client,
	}
}

func (r *httpRequest) Header(key, value string) *httpRequest {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r
}

func (r *httpRequest) Auth(token string) *httpRequest {
	if token == "" {
		return r
	}
	return r.Header("Authorization", fmt.Sprintf("Bearer %v", token))
}

func (r *httpRequest) Json(data interface{}) *httpRequest {
	r.json = data
	return r
}

func (r *httpRequest) Param(key, value string) *httpRequest {
	if r.queryParams == nil {
		r.queryParams = make(map[string]string)
	}
	r.queryParams[key] = value
	return r
}

// Do sends the request, rejects on transport failure, non-2xx status or
// a non-zero envelope code, and decodes the envelope's data field into
// result when result is non-nil.
func (r *httpRequest) Do(ctx context.Context, result interface{}) error {
	fullEndpoint, err := url.JoinPath(r.baseURL, r.endpoint)
	if err != nil {
		return fmt.Errorf("error formatting url for endpoint %v: %w", r.endpoint, err)
	}

	var body io.Reader
	if r.json != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(r.json); err != nil {
			return fmt.Errorf("error encoding json body for endpoint %v: %w", r.endpoint, err)
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, r.method, fullEndpoint, body)
	if err != nil {
		return fmt.Errorf("error creating %v request for endpoint %v: %w", r.method, r.endpoint, err)
	}

	if r.json != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Add(k, v)
	}

	if r.queryParams != nil {
		query := req.URL.Query()
		for k, v := range r.queryParams {
			query.Add(k, v)
		}
		req.URL.RawQuery = query.Encode()
	}

	start := time.Now()

	res, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending %v request to endpoint %v: %w", r.method, r.endpoint, err)
	}
	defer res.Body.Close()

	log.Printf("querydesk api: %s %s -> %d (%s)", r.method, r.endpoint, res.StatusCode, time.Since(start))

	content, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("error reading %v response from endpoint %v: %w", r.method, r.endpoint, err)
	}

	var env envelope
	if len(content) > 0 {
		if err := json.Unmarshal(content, &env); err != nil {
			if res.StatusCode < 200 || res.StatusCode > 299 {
				return &Error{Status: res.StatusCode, Message: fmt.Sprintf("%v request to endpoint %v returned status %d", r.method, r.endpoint, res.StatusCode)}
			}
			return fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 || env.Code != 0 {
		return &Error{Status: res.StatusCode, Code: env.Code, Message: env.Message}
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("error parsing %v response from endpoint %v: %w", r.method, r.endpoint, err)
		}
	}

	return nil
}
