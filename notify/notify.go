package notify

import "time"

// Severity is the colour/urgency of an alert
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Alert is a timed, user-facing message
type Alert struct {
	Title    string
	Message  string
	Severity Severity
	Duration time.Duration
}

// Notifier displays alerts. Notify is fire-and-forget and must be safe to
// call from any goroutine.
type Notifier interface {
	Notify(alert Alert)
}

// Func adapts an ordinary function to the Notifier interface
type Func func(Alert)

// Notify calls f(alert)
func (f Func) Notify(alert Alert) {
	f(alert)
}

// Nop discards every alert
var Nop Notifier = Func(func(Alert) {})

// Multi fans an alert out to every notifier in order
type Multi []Notifier

// Notify implements Notifier
func (m Multi) Notify(alert Alert) {
	for _, n := range m {
		if n != nil {
			n.Notify(alert)
		}
	}
}
