package backend

import (
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/s0up4200/grafcli/notify"
)

// DefaultNotifyDelay is how long error alerts wait before being shown
const DefaultNotifyDelay = 50 * time.Millisecond

// Option configures a Client.
type Option func(*Client)

// WithAppSubURL sets the sub path prefixed onto local URLs on the first
// attempt, e.g. "/grafana".
func WithAppSubURL(subURL string) Option {
	return func(c *Client) {
		c.appSubURL = strings.TrimRight(subURL, "/")
	}
}

// WithNotifier sets where alerts are delivered.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithNotifyDelay sets the delay before error alerts are shown.
func WithNotifyDelay(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.notifyDelay = d
		}
	}
}

// WithTracerProvider sets the provider used to trace logical calls.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}
