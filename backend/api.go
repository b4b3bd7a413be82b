package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Get issues a GET through the primary channel
func (c *Client) Get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	return c.Request(ctx, &Request{Method: http.MethodGet, URL: path, Params: params})
}

// Post issues a POST through the primary channel
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Request(ctx, &Request{Method: http.MethodPost, URL: path, Body: body})
}

// Put issues a PUT through the primary channel
func (c *Client) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Request(ctx, &Request{Method: http.MethodPut, URL: path, Body: body})
}

// Delete issues a DELETE through the primary channel
func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Request(ctx, &Request{Method: http.MethodDelete, URL: path})
}

// Search lists dashboards matching q
func (c *Client) Search(ctx context.Context, q SearchQuery) ([]SearchHit, error) {
	raw, err := c.Get(ctx, "/api/search", q.Values())
	if err != nil {
		return nil, err
	}
	return decode[[]SearchHit](raw, "search results")
}

// GetDashboard fetches a dashboard by slug
func (c *Client) GetDashboard(ctx context.Context, slug string) (*DashboardWithMeta, error) {
	slug = strings.TrimPrefix(slug, "db/")
	if slug == "" {
		return nil, fmt.Errorf("dashboard slug is required")
	}

	raw, err := c.Get(ctx, "/api/dashboards/db/"+url.PathEscape(slug), nil)
	if err != nil {
		return nil, err
	}
	dash, err := decode[DashboardWithMeta](raw, "dashboard")
	if err != nil {
		return nil, err
	}
	return &dash, nil
}

// SaveDashboard creates or updates a dashboard. Existing dashboards are only
// replaced when opts.Overwrite is set.
func (c *Client) SaveDashboard(ctx context.Context, dashboard any, opts SaveOptions) (*SaveResult, error) {
	raw, err := c.Post(ctx, "/api/dashboards/db/", saveDashboardCommand{
		Dashboard: dashboard,
		Overwrite: opts.Overwrite,
	})
	if err != nil {
		return nil, err
	}
	result, err := decode[SaveResult](raw, "save result")
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Health fetches the backend's health and version
func (c *Client) Health(ctx context.Context) (*HealthInfo, error) {
	raw, err := c.Get(ctx, "/api/health", nil)
	if err != nil {
		return nil, err
	}
	info, err := decode[HealthInfo](raw, "health")
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func decode[T any](raw json.RawMessage, what string) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("failed to parse %s: %w", what, err)
	}
	return v, nil
}
