package garmin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/oauth2"
)

const DefaultBaseURL = "https://connectapi.garmin.com"

// Client talks to the Garmin Connect activity API.
type Client struct {
	http    *http.Client
	baseURL *url.URL
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil {
			c.baseURL = u
		}
	}
}

// NewClient creates a Connect client authenticated by the given token
// source. Responses are cached in memory so repeated syncs within a
// session avoid refetching unchanged pages.
func NewClient(ts oauth2.TokenSource, opts ...Option) *Client {
	u, _ := url.Parse(DefaultBaseURL)

	transport := httpcache.NewMemoryCacheTransport()
	transport.Transport = &oauth2.Transport{Source: ts}

	c := &Client{
		http:    &http.Client{Transport: transport},
		baseURL: u,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ActivitiesByDate fetches activities in [start, end] (calendar days,
// inclusive), optionally filtered by activity type key.
func (c *Client) ActivitiesByDate(ctx context.Context, start, end time.Time, activityType string) ([]Activity, error) {
	u := *c.baseURL
	u.Path = "/activitylist-service/activities/search/activities"
	q := u.Query()
	q.Set("startDate", start.Format("2006-01-02"))
	q.Set("endDate", end.Format("2006-01-02"))
	if activityType != "" {
		q.Set("activityType", activityType)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch garmin activities: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrSessionExpired
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("garmin activities status %d: %s", resp.StatusCode, string(body))
	}

	var activities []Activity
	if err := json.Unmarshal(body, &activities); err != nil {
		return nil, fmt.Errorf("unmarshal garmin activities: %w", err)
	}
	return activities, nil
}
