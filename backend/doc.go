// Package backend mediates every call the application makes to its backend
// API.
//
// # Architecture
//
// The package is organized into several components:
//
//   - Client: the request mediator with a primary and a datasource channel
//   - Classify: the error classifier turning terminal failures into alerts
//   - LoginPing: the session probe used to recover from an expired session
//   - Get/Post/Put/Delete, Search, GetDashboard, SaveDashboard: thin helpers
//   - HTTPTransport: the default Transport, backed by net/http
//
// # Retry policy
//
// A call is retried at most once, and only after a 401:
//
//   - primary channel: any URL, on the first attempt, once LoginPing succeeds
//   - datasource channel: additionally only when the URL is a local path
//
// LoginPing is itself sent with Retry set to 1, so it never recurses. The
// mediator keeps no session or token cache.
//
// # Usage
//
//	transport, err := backend.NewHTTPTransport("http://localhost:3000", logger,
//		backend.WithAPIKey(apiKey),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := backend.NewClient(transport, logger,
//		backend.WithAppSubURL("/grafana"),
//		backend.WithNotifier(notify.NewConsoleNotifier(os.Stderr)),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Wait()
//
//	hits, err := client.Search(ctx, backend.SearchQuery{Query: "cpu"})
//
// # Error Handling
//
// Terminal failures on the primary channel are returned as:
//
//   - *ValidationError for 422, carrying the raw payload
//   - *ClassifiedError otherwise, with message and severity
//
// Both unwrap to the transport's *APIError:
//
//	var apiErr *backend.APIError
//	if errors.As(err, &apiErr) && apiErr.IsServerError() {
//		// Handle outage
//	}
//
// Alerts for these failures are shown after a short delay (50ms by default)
// so that the error reaches the caller first. Call Wait before exiting to
// flush them.
package backend
