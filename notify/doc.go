// Package notify delivers user-facing alerts.
//
// An Alert carries a title, an optional message, a severity (success, warning
// or error) and the duration it should stay visible. Notifiers are
// fire-and-forget: nothing is returned to the caller.
//
// Two notifiers are provided:
//
//   - ConsoleNotifier: one line per alert, coloured when writing to a terminal
//   - LogNotifier: a zerolog event whose level follows the severity
//
// Multi fans alerts out to several notifiers and Nop discards them.
package notify
