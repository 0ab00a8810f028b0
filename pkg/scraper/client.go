// Package scraper submits and polls web-scraping runs on an Apify-compatible API.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/zeromicro/go-zero/core/logx"
)

const (
	DefaultActor = "apify~web-scraper"

	defaultBaseURL = "https://api.apify.com/v2"
	defaultTimeout = 30 * time.Second
	maxContentLen  = 5000
)

// Status of a scraping job as exposed to callers.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var (
	ErrNotConfigured = errors.New("scraper: api token not configured")
	ErrInvalidJob    = errors.New("scraper: url or job id is required")
)

// JobHandle is the opaque reference to a remote run.
type JobHandle struct {
	ID          string          `json:"id"`
	TrackingID  string          `json:"trackingId"`
	URL         string          `json:"url,omitempty"`
	Status      Status          `json:"status"`
	DatasetID   string          `json:"datasetId,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// JobRequest describes a single-page scrape.
type JobRequest struct {
	URL      string
	Selector string
	Actor    string
}

type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	newID      func() string
	now        func() time.Time
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.newID = fn
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{baseURL: defaultBaseURL, newID: uuid.NewString, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return c
}

func (c *Client) Configured() bool { return c.token != "" }

const pageFunction = `async function pageFunction(context) {
  const { page, request } = context;
  const title = await page.title();
  const content = await page.evaluate(() => document.body.innerText);
  return { url: request.url, title, content: content.substring(0, %d), timestamp: new Date().toISOString() };
}`

// Submit starts a run for req.URL.
func (c *Client) Submit(ctx context.Context, req JobRequest) (*JobHandle, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	target := strings.TrimSpace(req.URL)
	if target == "" {
		return nil, ErrInvalidJob
	}
	if u, err := url.Parse(target); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", ErrInvalidJob, target)
	}
	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		actor = DefaultActor
	}

	input := map[string]any{
		"startUrls":           []map[string]string{{"url": target}},
		"linkSelector":        "a[href]",
		"pageFunction":        fmt.Sprintf(pageFunction, maxContentLen),
		"maxRequestsPerCrawl": 1,
	}
	if s := strings.TrimSpace(req.Selector); s != "" {
		input["selector"] = s
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("scraper: marshal input: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "/acts/"+url.PathEscape(actor)+"/runs", payload)
	if err != nil {
		return nil, err
	}
	run := gjson.GetBytes(body, "data")
	id := run.Get("id").String()
	if id == "" {
		return nil, errors.New("scraper: run response has no id")
	}
	handle := &JobHandle{
		ID:         id,
		TrackingID: c.newID(),
		URL:        target,
		Status:     StatusRunning,
		DatasetID:  run.Get("defaultDatasetId").String(),
		CreatedAt:  c.now().UTC(),
	}
	logx.WithContext(ctx).Infof("scraper: submitted run %s (tracking %s) for %s", handle.ID, handle.TrackingID, target)
	return handle, nil
}

// Status polls a run. Items of the default dataset are attached once the run succeeded.
func (c *Client) Status(ctx context.Context, id string) (*JobHandle, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidJob
	}
	body, err := c.do(ctx, http.MethodGet, "/actor-runs/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	run := gjson.GetBytes(body, "data")
	handle := &JobHandle{
		ID:        id,
		Status:    mapStatus(run.Get("status").String()),
		DatasetID: run.Get("defaultDatasetId").String(),
	}
	if ts, err := time.Parse(time.RFC3339, run.Get("startedAt").String()); err == nil {
		handle.CreatedAt = ts.UTC()
	}
	if ts, err := time.Parse(time.RFC3339, run.Get("finishedAt").String()); err == nil {
		done := ts.UTC()
		handle.CompletedAt = &done
	}

	if handle.Status == StatusCompleted && handle.DatasetID != "" {
		items, err := c.do(ctx, http.MethodGet, "/datasets/"+url.PathEscape(handle.DatasetID)+"/items?format=json", nil)
		if err != nil {
			logx.WithContext(ctx).Errorf("scraper: load dataset %s for run %s: %v", handle.DatasetID, id, err)
		} else if gjson.ValidBytes(items) {
			handle.Data = json.RawMessage(items)
		}
	}
	return handle, nil
}

func mapStatus(remote string) Status {
	switch strings.ToUpper(remote) {
	case "SUCCEEDED":
		return StatusCompleted
	case "FAILED", "ABORTED", "TIMED-OUT":
		return StatusFailed
	case "READY":
		return StatusPending
	default:
		return StatusRunning
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("scraper: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scraper: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("scraper: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(data, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("scraper: %s %s: status %d: %s", method, path, resp.StatusCode, msg)
	}
	return data, nil
}
