package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/s0up4200/grafcli/notify"
)

const (
	validationTitle   = "Validation failed"
	problemTitle      = "Problem!"
	unexpectedMessage = "Unexpected error"
)

// Alert durations
const (
	SuccessAlertDuration    = 3 * time.Second
	ValidationAlertDuration = 4 * time.Second
	ProblemAlertDuration    = 10 * time.Second
)

// Classify decides how a terminal failure is shown and what the caller
// receives. It performs no I/O and never mutates err. The returned error is
// never nil for a non-nil err; the alert is nil when nothing should be shown.
//
//   - errors already handled by the caller, and cancellations, come back as is
//   - 422 yields a "Validation failed" warning and a *ValidationError carrying
//     the raw payload
//   - anything else yields a *ClassifiedError; status < 500 is a warning,
//     otherwise an error, and a "Problem!" alert is raised when the payload
//     has a message
func Classify(err error) (*notify.Alert, error) {
	if err == nil {
		return nil, nil
	}

	var apiErr *APIError
	isAPIErr := errors.As(err, &apiErr)
	if isAPIErr && apiErr.Handled {
		return nil, err
	}
	if errors.Is(err, context.Canceled) {
		return nil, err
	}

	var status int
	var body []byte
	if isAPIErr {
		status, body = apiErr.StatusCode, apiErr.Body
	}

	if status == http.StatusUnprocessableEntity {
		alert := &notify.Alert{
			Title:    validationTitle,
			Severity: notify.SeverityWarning,
			Duration: ValidationAlertDuration,
		}
		return alert, &ValidationError{Payload: json.RawMessage(bytes.Clone(body)), Err: err}
	}

	severity := notify.SeverityError
	if status < http.StatusInternalServerError {
		severity = notify.SeverityWarning
	}

	data := normalizePayload(body)
	classified := &ClassifiedError{
		Message:    messageString(data["message"]),
		Severity:   severity,
		StatusCode: status,
		Data:       data,
		Raw:        json.RawMessage(bytes.Clone(body)),
		Err:        err,
	}

	if classified.Message == "" {
		return nil, classified
	}

	alert := &notify.Alert{
		Title:    problemTitle,
		Message:  classified.Message,
		Severity: severity,
		Duration: ProblemAlertDuration,
	}
	return alert, classified
}

// normalizePayload turns an error body into an object. Missing or falsy
// payloads (empty, null, "", false, 0) get a default message and bare
// strings become {"message": s}.
func normalizePayload(body []byte) map[string]any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return map[string]any{"message": unexpectedMessage}
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return map[string]any{"message": string(trimmed)}
	}

	switch v := decoded.(type) {
	case map[string]any:
		return v
	case string:
		if v == "" {
			return map[string]any{"message": unexpectedMessage}
		}
		return map[string]any{"message": v}
	case nil:
		return map[string]any{"message": unexpectedMessage}
	case bool:
		if !v {
			return map[string]any{"message": unexpectedMessage}
		}
		return map[string]any{}
	case float64:
		if v == 0 {
			return map[string]any{"message": unexpectedMessage}
		}
		return map[string]any{}
	default:
		// arrays and scalars carry no message; Raw keeps them
		return map[string]any{}
	}
}
