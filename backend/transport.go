package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"
)

const defaultUserAgent = "grafcli"

// TransportOption configures an HTTPTransport.
type TransportOption func(*HTTPTransport)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) TransportOption {
	return func(t *HTTPTransport) {
		if timeout > 0 {
			t.httpClient.Timeout = timeout
		}
	}
}

// WithAPIKey authenticates every attempt with a bearer token.
func WithAPIKey(apiKey string) TransportOption {
	return func(t *HTTPTransport) {
		t.apiKey = apiKey
	}
}

// WithBasicAuth authenticates every attempt with basic auth.
func WithBasicAuth(username, password string) TransportOption {
	return func(t *HTTPTransport) {
		t.username = username
		t.password = password
	}
}

// WithUserAgent sets a custom user agent string.
func WithUserAgent(userAgent string) TransportOption {
	return func(t *HTTPTransport) {
		if userAgent != "" {
			t.userAgent = userAgent
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. A cookie jar is added
// when the client has none, since the session lives in cookies.
func WithHTTPClient(client *http.Client) TransportOption {
	return func(t *HTTPTransport) {
		if client != nil {
			t.httpClient = client
		}
	}
}

// HTTPTransport sends attempts over HTTP. Local URLs are resolved against
// the backend origin; absolute URLs are used as they are.
type HTTPTransport struct {
	baseURL    string
	apiKey     string
	username   string
	password   string
	userAgent  string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewHTTPTransport creates a transport for the backend at baseURL
func NewHTTPTransport(baseURL string, logger zerolog.Logger, opts ...TransportOption) (*HTTPTransport, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("%w: backend URL is required", ErrInvalidConfig)
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%w: invalid backend URL %q: %v", ErrInvalidConfig, baseURL, err)
	}

	t := &HTTPTransport{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: defaultUserAgent,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.httpClient.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		t.httpClient.Jar = jar
	}

	return t, nil
}

// Do sends a single attempt
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	target, err := t.resolve(req)
	if err != nil {
		return nil, err
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", t.userAgent)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if id, ok := RequestIDFromContext(ctx); ok {
		httpReq.Header.Set(HeaderXRequestID, id)
	}
	// credentials only go to our own backend
	if req.IsLocal() {
		switch {
		case t.apiKey != "":
			httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
		case t.username != "":
			httpReq.SetBasicAuth(t.username, t.password)
		}
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	t.logger.Trace().
		Str("method", method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Msg("Backend response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			URL:        req.URL,
			Body:       data,
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (t *HTTPTransport) resolve(req *Request) (string, error) {
	target := req.URL
	if req.IsLocal() {
		target = t.baseURL + target
	}

	if len(req.Params) == 0 {
		return target, nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid request URL %q: %w", target, err)
	}
	query := u.Query()
	for key, values := range req.Params {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case json.RawMessage:
		return bytes.NewReader(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		return bytes.NewReader(data), nil
	}
}
