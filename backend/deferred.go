package backend

import (
	"time"

	"github.com/s0up4200/grafcli/notify"
)

// deferNotify shows alert after the notify delay, off the caller's
// goroutine, so the error reaches the caller before anything is displayed.
func (c *Client) deferNotify(alert *notify.Alert) {
	if alert == nil {
		return
	}

	a := *alert
	c.pending.Add(1)
	time.AfterFunc(c.notifyDelay, func() {
		defer c.pending.Done()
		c.notifier.Notify(a)
	})
}

// Wait blocks until every deferred alert has been delivered. It must not be
// called while requests on c are still running; call it once they have
// returned, e.g. before the process exits.
func (c *Client) Wait() {
	c.pending.Wait()
}
