package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/s0up4200/grafcli/metrics"
	"github.com/s0up4200/grafcli/notify"
)

const tracerName = "github.com/s0up4200/grafcli/backend"

// LoginPingPath is the session probe endpoint
const LoginPingPath = "/api/login/ping"

// Transport sends a single attempt. Non-2xx responses must be returned as
// *APIError.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Client mediates every call to the backend. It keeps no session state of
// its own; the session probe is the only source of truth for auth validity.
type Client struct {
	transport   Transport
	notifier    notify.Notifier
	appSubURL   string
	notifyDelay time.Duration
	logger      zerolog.Logger
	tracer      trace.Tracer
	pending     sync.WaitGroup
}

// NewClient creates a new backend client
func NewClient(transport Transport, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: transport is required", ErrInvalidConfig)
	}

	client := &Client{
		transport:   transport,
		notifier:    notify.Nop,
		notifyDelay: DefaultNotifyDelay,
		logger:      logger,
		tracer:      otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Request sends req through the primary channel and returns the response
// payload.
//
// Local URLs are prefixed with the app sub path on the first attempt only. A
// 401 on the first attempt triggers one session probe and, if it succeeds,
// exactly one retry. Any other failure is classified; the resulting alert is
// shown after the notify delay and the classified error is returned. It
// unwraps to the original *APIError.
//
// Successful non-GET calls whose payload has a message raise a success alert.
func (c *Client) Request(ctx context.Context, req *Request) (json.RawMessage, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	ctx, requestID := ensureRequestID(ctx)
	ctx, span := c.tracer.Start(ctx, "backend.Request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.original", req.URL),
		),
	)
	defer span.End()

	for {
		firstAttempt := req.Retry == 0
		if firstAttempt && req.IsLocal() {
			req.URL = c.appSubURL + req.URL
		}

		resp, err := c.dispatch(ctx, ChannelPrimary, req, requestID)
		if err == nil {
			if req.Method != http.MethodGet {
				if msg := resp.Message(); msg != "" {
					c.notifier.Notify(notify.Alert{
						Title:    msg,
						Severity: notify.SeveritySuccess,
						Duration: SuccessAlertDuration,
					})
				}
			}
			span.SetAttributes(attribute.Int("grafcli.retry", req.Retry))
			return json.RawMessage(resp.Body), nil
		}

		if firstAttempt && isUnauthorized(err) {
			if perr := c.refresh(ctx, ChannelPrimary, req, requestID); perr != nil {
				recordError(span, perr)
				return nil, perr
			}
			req.Retry = 1
			continue
		}

		alert, classified := Classify(err)
		c.deferNotify(alert)
		if ce, ok := classified.(*ClassifiedError); ok {
			metrics.ClassifiedErrorsTotal.WithLabelValues(string(ce.Severity)).Inc()
		}

		c.logger.Warn().
			Err(err).
			Str("request_id", requestID).
			Str("method", req.Method).
			Str("url", req.URL).
			Int("retry", req.Retry).
			Int("status", StatusCode(err)).
			Msg("Backend request failed")

		recordError(span, classified)
		return nil, classified
	}
}

// DatasourceRequest sends req through the secondary channel and returns the
// raw response. URLs are used as given and no alerts are raised.
//
// A 401 is retried once after a session probe only for local URLs on the
// first attempt; a downstream source's own auth failure cannot be fixed by
// refreshing the local session. Every other failure is returned unmodified.
func (c *Client) DatasourceRequest(ctx context.Context, req *Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	ctx, requestID := ensureRequestID(ctx)
	ctx, span := c.tracer.Start(ctx, "backend.DatasourceRequest",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.original", req.URL),
		),
	)
	defer span.End()

	for {
		resp, err := c.dispatch(ctx, ChannelDatasource, req, requestID)
		if err == nil {
			span.SetAttributes(attribute.Int("grafcli.retry", req.Retry))
			return resp, nil
		}

		if req.Retry == 0 && req.IsLocal() && isUnauthorized(err) {
			if perr := c.refresh(ctx, ChannelDatasource, req, requestID); perr != nil {
				recordError(span, perr)
				return nil, perr
			}
			req.Retry = 1
			continue
		}

		recordError(span, err)
		return nil, err
	}
}

// LoginPing probes the session endpoint. The probe is sent with Retry
// already set, so a 401 from it is final.
//
// The probe path is deliberately not a bare /api/login/ping: a retried
// descriptor is never prefixed, so the app sub path is applied here and a
// backend served under e.g. /grafana is probed at /grafana/api/login/ping
// rather than at the root of the origin.
func (c *Client) LoginPing(ctx context.Context) error {
	_, err := c.Request(ctx, &Request{Method: http.MethodGet, URL: c.appSubURL + LoginPingPath, Retry: 1})
	return err
}

func (c *Client) refresh(ctx context.Context, channel Channel, req *Request, requestID string) error {
	c.logger.Info().
		Str("request_id", requestID).
		Str("channel", string(channel)).
		Str("method", req.Method).
		Str("url", req.URL).
		Msg("Session expired, refreshing")

	if err := c.LoginPing(ctx); err != nil {
		metrics.SessionRefreshesTotal.WithLabelValues("failure").Inc()
		c.logger.Warn().Err(err).Str("request_id", requestID).Msg("Session refresh failed")
		return err
	}

	metrics.SessionRefreshesTotal.WithLabelValues("success").Inc()
	metrics.RetriesTotal.WithLabelValues(string(channel)).Inc()
	return nil
}

func (c *Client) dispatch(ctx context.Context, channel Channel, req *Request, requestID string) (*Response, error) {
	c.logger.Debug().
		Str("request_id", requestID).
		Str("channel", string(channel)).
		Str("method", req.Method).
		Str("url", req.URL).
		Int("retry", req.Retry).
		Msg("Sending backend request")

	start := time.Now()
	resp, err := c.transport.Do(ctx, req)
	metrics.RequestLatency.WithLabelValues(string(channel), req.Method).Observe(time.Since(start).Seconds())

	outcome := "success"
	switch {
	case err == nil:
	case isUnauthorized(err):
		outcome = "unauthorized"
	default:
		outcome = "error"
	}
	metrics.RequestsTotal.WithLabelValues(string(channel), req.Method, outcome).Inc()

	return resp, err
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
