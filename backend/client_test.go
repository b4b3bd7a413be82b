package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/grafcli/metrics"
	"github.com/s0up4200/grafcli/notify"
)

// call is a snapshot of a descriptor as the transport saw it
type call struct {
	Method    string
	URL       string
	Retry     int
	RequestID string
}

// fakeTransport implements Transport for testing
type fakeTransport struct {
	mu     sync.Mutex
	calls  []call
	handle func(n int, c call) (*Response, error)
}

func (f *fakeTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	id, _ := RequestIDFromContext(ctx)
	c := call{Method: req.Method, URL: req.URL, Retry: req.Retry, RequestID: id}

	f.mu.Lock()
	f.calls = append(f.calls, c)
	n := len(f.calls)
	f.mu.Unlock()

	return f.handle(n, c)
}

func (f *fakeTransport) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

// recorder collects delivered alerts
type recorder struct {
	mu     sync.Mutex
	alerts []notify.Alert
}

func (r *recorder) Notify(a notify.Alert) {
	r.mu.Lock()
	r.alerts = append(r.alerts, a)
	r.mu.Unlock()
}

func (r *recorder) Alerts() []notify.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Alert(nil), r.alerts...)
}

func ok(body string) (*Response, error) {
	return &Response{StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

func fail(status int, body string) (*Response, error) {
	return nil, &APIError{StatusCode: status, Body: []byte(body)}
}

func newTestClient(t *testing.T, transport Transport, rec *recorder) *Client {
	t.Helper()
	client, err := NewClient(transport, zerolog.Nop(),
		WithAppSubURL("/grafana"),
		WithNotifier(rec),
		WithNotifyDelay(0),
	)
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresTransport(t *testing.T) {
	_, err := NewClient(nil, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRequest_PathResolution(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		retry    int
		expected string
	}{
		{
			name:     "local path on first attempt",
			url:      "/api/search",
			expected: "/grafana/api/search",
		},
		{
			name:     "absolute url",
			url:      "http://example.com/api/search",
			expected: "http://example.com/api/search",
		},
		{
			name:     "local path already retried",
			url:      "/grafana/api/search",
			retry:    1,
			expected: "/grafana/api/search",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{handle: func(int, call) (*Response, error) { return ok(`{}`) }}
			client := newTestClient(t, transport, &recorder{})

			_, err := client.Request(context.Background(), &Request{Method: http.MethodGet, URL: tt.url, Retry: tt.retry})
			require.NoError(t, err)

			calls := transport.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, tt.expected, calls[0].URL)
		})
	}
}

func TestRequest_GetSuccessHasNoAlert(t *testing.T) {
	transport := &fakeTransport{handle: func(int, call) (*Response, error) {
		return ok(`{"results":[{"title":"CPU"}],"message":"ignored for GET"}`)
	}}
	rec := &recorder{}
	client := newTestClient(t, transport, rec)

	payload, err := client.Get(context.Background(), "/api/search", nil)
	require.NoError(t, err)
	client.Wait()

	assert.JSONEq(t, `{"results":[{"title":"CPU"}],"message":"ignored for GET"}`, string(payload))
	assert.Equal(t, "/grafana/api/search", transport.Calls()[0].URL)
	assert.Empty(t, rec.Alerts())
}

func TestRequest_NonGetSuccessAlert(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		alerts []notify.Alert
	}{
		{
			name: "with message",
			body: `{"message":"Dashboard deleted"}`,
			alerts: []notify.Alert{
				{Title: "Dashboard deleted", Severity: notify.SeveritySuccess, Duration: SuccessAlertDuration},
			},
		},
		{
			name: "without message",
			body: `{"id":1}`,
		},
		{
			name: "empty body",
			body: ``,
		},
		{
			name: "false message",
			body: `{"message":false}`,
		},
		{
			name: "zero message",
			body: `{"message":0}`,
		},
		{
			name: "empty message",
			body: `{"message":""}`,
		},
		{
			name: "numeric message",
			body: `{"message":42}`,
			alerts: []notify.Alert{
				{Title: "42", Severity: notify.SeveritySuccess, Duration: SuccessAlertDuration},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{handle: func(int, call) (*Response, error) { return ok(tt.body) }}
			rec := &recorder{}
			client := newTestClient(t, transport, rec)

			_, err := client.Delete(context.Background(), "/api/dashboards/db/cpu")
			require.NoError(t, err)
			client.Wait()

			assert.Equal(t, tt.alerts, rec.Alerts())
		})
	}
}

func TestRequest_RetriesOnceAfterSessionRefresh(t *testing.T) {
	transport := &fakeTransport{handle: func(n int, c call) (*Response, error) {
		switch n {
		case 1:
			return fail(http.StatusUnauthorized, `{"message":"Unauthorized"}`)
		case 2:
			return ok(`{"message":"Logged in"}`)
		default:
			return ok(`{"message":"Dashboard saved"}`)
		}
	}}
	rec := &recorder{}
	client := newTestClient(t, transport, rec)

	retriesBefore := testutil.ToFloat64(metrics.RetriesTotal.WithLabelValues("primary"))

	payload, err := client.Request(context.Background(), &Request{
		Method: http.MethodPost,
		URL:    "/api/dashboards/db/",
		Body:   map[string]any{"dashboard": map[string]any{"title": "CPU"}},
	})
	require.NoError(t, err)
	client.Wait()

	assert.JSONEq(t, `{"message":"Dashboard saved"}`, string(payload))

	calls := transport.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, call{Method: http.MethodPost, URL: "/grafana/api/dashboards/db/", Retry: 0, RequestID: calls[0].RequestID}, calls[0])
	assert.Equal(t, call{Method: http.MethodGet, URL: "/grafana/api/login/ping", Retry: 1, RequestID: calls[0].RequestID}, calls[1])
	assert.Equal(t, call{Method: http.MethodPost, URL: "/grafana/api/dashboards/db/", Retry: 1, RequestID: calls[0].RequestID}, calls[2])
	assert.NotEmpty(t, calls[0].RequestID)

	assert.Equal(t, []notify.Alert{
		{Title: "Dashboard saved", Severity: notify.SeveritySuccess, Duration: SuccessAlertDuration},
	}, rec.Alerts())
	assert.Equal(t, retriesBefore+1, testutil.ToFloat64(metrics.RetriesTotal.WithLabelValues("primary")))
}

func TestRequest_SessionRefreshFailurePropagates(t *testing.T) {
	transport := &fakeTransport{handle: func(n int, c call) (*Response, error) {
		return fail(http.StatusUnauthorized, `{"message":"Unauthorized"}`)
	}}
	rec := &recorder{}
	client := newTestClient(t, transport, rec)

	_, err := client.Post(context.Background(), "/api/dashboards/db/", map[string]any{})
	require.Error(t, err)
	client.Wait()

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	calls := transport.Calls()
	require.Len(t, calls, 2, "no retry after a failed refresh")
	assert.Equal(t, "/grafana/api/login/ping", calls[1].URL)
	assert.Equal(t, 1, calls[1].Retry)

	// the probe reports its own failure exactly once
	assert.Equal(t, []notify.Alert{
		{Title: "Problem!", Message: "Unauthorized", Severity: notify.SeverityWarning, Duration: ProblemAlertDuration},
	}, rec.Alerts())
}

func TestRequest_SessionRefreshPassesThroughOtherErrors(t *testing.T) {
	transport := &fakeTransport{handle: func(n int, c call) (*Response, error) {
		if n == 1 {
			return fail(http.StatusUnauthorized, ``)
		}
		return fail(http.StatusUnprocessableEntity, `{"errors":["bad"]}`)
	}}
	client := newTestClient(t, transport, &recorder{})

	_, err := client.Get(context.Background(), "/api/search", nil)
	client.Wait()

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.JSONEq(t, `{"errors":["bad"]}`, string(validationErr.Payload))
	assert.Len(t, transport.Calls(), 2)
}

func TestRequest_UnauthorizedOnRetryIsTerminal(t *testing.T) {
	transport := &fakeTransport{handle: func(n int, c call) (*Response, error) {
		if n == 2 {
			return ok(`{}`)
		}
		return fail(http.StatusUnauthorized, `{"message":"Unauthorized"}`)
	}}
	rec := &recorder{}
	client := newTestClient(t, transport, rec)

	_, err := client.Get(context.Background(), "/api/search", nil)
	require.Error(t, err)
	client.Wait()

	assert.Len(t, transport.Calls(), 3)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))

	var classified *ClassifiedError
	require.True(t, errors.As(err, &classified))
	assert.Equal(t, notify.SeverityWarning, classified.Severity)
	assert.Len(t, rec.Alerts(), 1)
}

func TestRequest_ValidationFailure(t *testing.T) {
	transport := &fakeTransport{handle: func(int, call) (*Response, error) {
		return fail(http.StatusUnprocessableEntity, `{"errors":[{"field":"title"}]}`)
	}}
	rec := &recorder{}
	client := newTestClient(t, transport, rec)

	_, err := client.Post(context.Background(), "/api/dashboards/db/", map[string]any{})
	client.Wait()

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.JSONEq(t, `{"errors":[{"field":"title"}]}`, string(validationErr.Payload))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusCode(err))

	assert.Equal(t, []notify.Alert{
		{Title: "Validation failed", Severity: notify.SeverityWarning, Duration: ValidationAlertDuration},
	}, rec.Alerts())
}

func TestRequest_ServerErrorWithBareString(t *testing.T) {
	transport := &fakeTransport{handle: func(int, call) (*Response, error) {
		return fail(http.StatusServiceUnavailable, `Service unavailable`)
	}}
	rec := &recorder{}
	client := newTestClient(t, transport, rec)

	_, err := client.Get(context.Background(), "/api/dashboards/db/cpu", nil)
	client.Wait()

	var classified *ClassifiedError
	require.True(t, errors.As(err, &classified))
	out, merr := json.Marshal(classified)
	require.NoError(t, merr)
	assert.JSONEq(t, `{"message":"Service unavailable","severity":"error"}`, string(out))

	assert.Equal(t, []notify.Alert{
		{Title: "Problem!", Message: "Service unavailable", Severity: notify.SeverityError, Duration: ProblemAlertDuration},
	}, rec.Alerts())
}

func TestRequest_HandledErrorIsNotShown(t *testing.T) {
	original := &APIError{StatusCode: http.StatusInternalServerError, Body: []byte(`{"message":"boom"}`), Handled: true}
	transport := &fakeTransport{handle: func(int, call) (*Response, error) { return nil, original }}
	rec := &recorder{}
	client := newTestClient(t, transport, rec)

	_, err := client.Get(context.Background(), "/api/search", nil)
	client.Wait()

	assert.Same(t, original, err)
	assert.Empty(t, rec.Alerts())
}

func TestRequest_TransportFailure(t *testing.T) {
	transport := &fakeTransport{handle: func(int, call) (*Response, error) {
		return nil, errors.New("connection refused")
	}}
	rec := &recorder{}
	client := newTestClient(t, transport, rec)

	_, err := client.Get(context.Background(), "/api/search", nil)
	client.Wait()

	var classified *ClassifiedError
	require.True(t, errors.As(err, &classified))
	assert.Equal(t, "Unexpected error", classified.Message)
	assert.Equal(t, notify.SeverityWarning, classified.Severity)
	assert.EqualError(t, errors.Unwrap(err), "connection refused")
	assert.Len(t, transport.Calls(), 1)
	assert.Len(t, rec.Alerts(), 1)
}

func TestRequest_AlertIsDeferred(t *testing.T) {
	transport := &fakeTransport{handle: func(int, call) (*Response, error) {
		return fail(http.StatusInternalServerError, `{"message":"boom"}`)
	}}
	rec := &recorder{}
	client, err := NewClient(transport, zerolog.Nop(), WithNotifier(rec), WithNotifyDelay(200*time.Millisecond))
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/api/search", nil)
	require.Error(t, err)
	assert.Empty(t, rec.Alerts(), "alert must not be shown before the error is returned")

	client.Wait()
	assert.Len(t, rec.Alerts(), 1)
}

func TestDatasourceRequest(t *testing.T) {
	t.Run("success returns raw response", func(t *testing.T) {
		transport := &fakeTransport{handle: func(int, call) (*Response, error) {
			return &Response{StatusCode: http.StatusOK, Body: []byte(`[1,2,3]`), Header: http.Header{"X-Series": {"3"}}}, nil
		}}
		rec := &recorder{}
		client := newTestClient(t, transport, rec)

		resp, err := client.DatasourceRequest(context.Background(), &Request{Method: http.MethodPost, URL: "/api/datasources/proxy/1/query"})
		require.NoError(t, err)
		client.Wait()

		assert.Equal(t, "3", resp.Header.Get("X-Series"))
		assert.Equal(t, "/api/datasources/proxy/1/query", transport.Calls()[0].URL, "datasource URLs are not prefixed")
		assert.Empty(t, rec.Alerts())
	})

	t.Run("401 on non-local url is not retried", func(t *testing.T) {
		original := &APIError{StatusCode: http.StatusUnauthorized}
		transport := &fakeTransport{handle: func(int, call) (*Response, error) { return nil, original }}
		rec := &recorder{}
		client := newTestClient(t, transport, rec)

		_, err := client.DatasourceRequest(context.Background(), &Request{URL: "http://influx.example.com/query"})
		client.Wait()

		assert.Same(t, original, err)
		assert.Len(t, transport.Calls(), 1)
		assert.Empty(t, rec.Alerts())
	})

	t.Run("401 on local url is retried once", func(t *testing.T) {
		transport := &fakeTransport{handle: func(n int, c call) (*Response, error) {
			if n == 1 {
				return fail(http.StatusUnauthorized, ``)
			}
			return ok(`{"ok":true}`)
		}}
		client := newTestClient(t, transport, &recorder{})

		resp, err := client.DatasourceRequest(context.Background(), &Request{URL: "/api/datasources/proxy/1/query"})
		require.NoError(t, err)

		assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
		calls := transport.Calls()
		require.Len(t, calls, 3)
		assert.Equal(t, "/grafana/api/login/ping", calls[1].URL)
		assert.Equal(t, call{Method: http.MethodGet, URL: "/api/datasources/proxy/1/query", Retry: 1, RequestID: calls[0].RequestID}, calls[2])
	})

	t.Run("other failures are returned unmodified", func(t *testing.T) {
		original := &APIError{StatusCode: http.StatusBadGateway, Body: []byte(`{"message":"upstream down"}`)}
		transport := &fakeTransport{handle: func(int, call) (*Response, error) { return nil, original }}
		rec := &recorder{}
		client := newTestClient(t, transport, rec)

		_, err := client.DatasourceRequest(context.Background(), &Request{URL: "/api/datasources/proxy/1/query"})
		client.Wait()

		assert.Same(t, original, err)
		assert.Empty(t, rec.Alerts())
	})

	t.Run("401 on retried attempt is returned", func(t *testing.T) {
		transport := &fakeTransport{handle: func(n int, c call) (*Response, error) {
			if n == 2 {
				return ok(`{}`)
			}
			return fail(http.StatusUnauthorized, ``)
		}}
		client := newTestClient(t, transport, &recorder{})

		_, err := client.DatasourceRequest(context.Background(), &Request{URL: "/api/datasources/proxy/1/query"})

		assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
		assert.Len(t, transport.Calls(), 3)
	})
}

func TestLoginPing(t *testing.T) {
	transport := &fakeTransport{handle: func(int, call) (*Response, error) {
		return fail(http.StatusUnauthorized, ``)
	}}
	client := newTestClient(t, transport, &recorder{})

	err := client.LoginPing(context.Background())
	client.Wait()

	require.Error(t, err)
	calls := transport.Calls()
	require.Len(t, calls, 1, "the probe never retries itself")
	assert.Equal(t, call{Method: http.MethodGet, URL: "/grafana/api/login/ping", Retry: 1, RequestID: calls[0].RequestID}, calls[0])
}

func TestRequest_KeepsCallerRequestID(t *testing.T) {
	transport := &fakeTransport{handle: func(int, call) (*Response, error) { return ok(`{}`) }}
	client := newTestClient(t, transport, &recorder{})

	ctx := WithRequestID(context.Background(), "req-123")
	_, err := client.Get(ctx, "/api/search", nil)
	require.NoError(t, err)

	assert.Equal(t, "req-123", transport.Calls()[0].RequestID)
}
