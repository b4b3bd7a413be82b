package notify

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleNotifier(t *testing.T) {
	tests := []struct {
		name     string
		alert    Alert
		expected string
	}{
		{
			name:     "title and message",
			alert:    Alert{Title: "Problem!", Message: "Service unavailable", Severity: SeverityError, Duration: 10 * time.Second},
			expected: "[error] Problem!: Service unavailable\n",
		},
		{
			name:     "title only",
			alert:    Alert{Title: "Validation failed", Severity: SeverityWarning, Duration: 4 * time.Second},
			expected: "[warning] Validation failed\n",
		},
		{
			name:     "message only",
			alert:    Alert{Message: "Dashboard saved", Severity: SeveritySuccess},
			expected: "[success] Dashboard saved\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n := NewConsoleNotifier(&buf)
			n.Notify(tt.alert)
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestConsoleNotifierColor(t *testing.T) {
	var buf bytes.Buffer
	n := NewConsoleNotifier(&buf)
	n.SetColor(true)

	n.Notify(Alert{Title: "Dashboard saved", Severity: SeveritySuccess})

	assert.Equal(t, colorGreen+"✓ Dashboard saved"+colorReset+"\n", buf.String())
}

func TestLogNotifierLevels(t *testing.T) {
	tests := []struct {
		severity Severity
		level    string
	}{
		{SeveritySuccess, "info"},
		{SeverityWarning, "warn"},
		{SeverityError, "error"},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			var buf bytes.Buffer
			n := NewLogNotifier(zerolog.New(&buf))
			n.Notify(Alert{Title: "Problem!", Message: "boom", Severity: tt.severity, Duration: time.Second})

			var event map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
			assert.Equal(t, tt.level, event["level"])
			assert.Equal(t, "Problem!", event["message"])
			assert.Equal(t, "boom", event["text"])
			assert.Equal(t, string(tt.severity), event["severity"])
		})
	}
}

func TestMulti(t *testing.T) {
	var got []string
	record := func(prefix string) Notifier {
		return Func(func(a Alert) { got = append(got, prefix+a.Title) })
	}

	Multi{record("a:"), nil, record("b:")}.Notify(Alert{Title: "x"})

	assert.Equal(t, []string{"a:x", "b:x"}, got)
}
