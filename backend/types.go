package backend

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Channel names the two request paths through the mediator
type Channel string

const (
	// ChannelPrimary carries calls into the application's own backend
	ChannelPrimary Channel = "primary"
	// ChannelDatasource carries calls routed to downstream data sources
	ChannelDatasource Channel = "datasource"
)

// Request describes one logical call. It belongs to that call only and is
// mutated at most once: the URL gains the app sub path on the first attempt
// and Retry goes from 0 to 1 when the call is retried.
type Request struct {
	Method string
	URL    string
	Params url.Values
	// Body is sent as JSON unless it is already []byte or json.RawMessage
	Body any
	// Retry is 0 on the first attempt and 1 once retried
	Retry int
}

// IsLocal reports whether the URL is a same-origin relative path
func (r *Request) IsLocal() bool {
	return strings.HasPrefix(r.URL, "/")
}

// Response is the envelope of a successful attempt
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON payload into v
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return ErrEmptyBody
	}
	return json.Unmarshal(r.Body, v)
}

// Message returns the payload's top-level "message" field, if any
func (r *Response) Message() string {
	return payloadMessage(r.Body)
}

func payloadMessage(body []byte) string {
	var envelope struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return messageString(envelope.Message)
}

// messageString renders a payload's message field. Falsy values (false, 0,
// "" and null) count as no message.
func messageString(v any) string {
	switch m := v.(type) {
	case nil:
		return ""
	case string:
		return m
	case bool:
		if !m {
			return ""
		}
		return "true"
	case float64:
		if m == 0 {
			return ""
		}
		return mustJSON(m)
	default:
		return mustJSON(m)
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// SearchQuery holds the parameters of a dashboard search
type SearchQuery struct {
	Query     string
	Tags      []string
	Starred   bool
	Type      string
	FolderIDs []int64
	Limit     int
}

// Values encodes the query as URL parameters
func (q SearchQuery) Values() url.Values {
	params := url.Values{}
	if q.Query != "" {
		params.Set("query", q.Query)
	}
	for _, tag := range q.Tags {
		params.Add("tag", tag)
	}
	if q.Starred {
		params.Set("starred", "true")
	}
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	for _, id := range q.FolderIDs {
		params.Add("folderIds", strconv.FormatInt(id, 10))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return params
}

// SearchHit is a single search result
type SearchHit struct {
	ID          int64    `json:"id"`
	UID         string   `json:"uid"`
	Title       string   `json:"title"`
	URI         string   `json:"uri"`
	URL         string   `json:"url"`
	Type        string   `json:"type"`
	Tags        []string `json:"tags"`
	IsStarred   bool     `json:"isStarred"`
	FolderID    int64    `json:"folderId"`
	FolderTitle string   `json:"folderTitle"`
}

// Slug returns the dashboard slug derived from the hit's URI
func (h SearchHit) Slug() string {
	return strings.TrimPrefix(h.URI, "db/")
}

// DashboardMeta is the metadata returned alongside a dashboard
type DashboardMeta struct {
	Type        string    `json:"type"`
	CanSave     bool      `json:"canSave"`
	CanEdit     bool      `json:"canEdit"`
	CanStar     bool      `json:"canStar"`
	IsStarred   bool      `json:"isStarred"`
	Slug        string    `json:"slug"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
	Version     int       `json:"version"`
	FolderTitle string    `json:"folderTitle"`
}

// DashboardWithMeta is the payload of GET /api/dashboards/db/{slug}. The
// dashboard model itself is kept verbatim.
type DashboardWithMeta struct {
	Meta      DashboardMeta   `json:"meta"`
	Dashboard json.RawMessage `json:"dashboard"`
}

// SaveOptions controls SaveDashboard
type SaveOptions struct {
	Overwrite bool
}

type saveDashboardCommand struct {
	Dashboard any  `json:"dashboard"`
	Overwrite bool `json:"overwrite"`
}

// SaveResult is the payload returned after saving a dashboard
type SaveResult struct {
	ID      int64  `json:"id"`
	UID     string `json:"uid"`
	Slug    string `json:"slug"`
	Status  string `json:"status"`
	URL     string `json:"url"`
	Version int    `json:"version"`
	Message string `json:"message"`
}

// HealthInfo is the payload of GET /api/health
type HealthInfo struct {
	Commit   string `json:"commit"`
	Database string `json:"database"`
	Version  string `json:"version"`
}
