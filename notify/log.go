package notify

import (
	"github.com/rs/zerolog"
)

// LogNotifier turns alerts into structured log events
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier that logs through logger
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements Notifier
func (l *LogNotifier) Notify(alert Alert) {
	var event *zerolog.Event
	switch alert.Severity {
	case SeveritySuccess:
		event = l.logger.Info()
	case SeverityWarning:
		event = l.logger.Warn()
	default:
		event = l.logger.Error()
	}

	event.
		Str("severity", string(alert.Severity)).
		Str("text", alert.Message).
		Dur("duration", alert.Duration).
		Msg(alert.Title)
}
