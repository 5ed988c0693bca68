// Package browseruse is a provider client for the browser-use cloud API.
package browseruse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/peebo/peebo/internal/log"
	"github.com/peebo/peebo/internal/model"
	"github.com/peebo/peebo/internal/provider"
)

// DefaultBaseURL is the browser-use cloud API root.
const DefaultBaseURL = "https://api.browser-use.com/api/v1"

// ClientConfig is the configuration for the Client.
type ClientConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Logger     log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "browseruse.Client"})
	return nil
}

// Client is a provider.Provider over the browser-use HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  log.Logger
}

var _ provider.Provider = &Client{}

// NewClient returns a new browser-use client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger,
	}, nil
}

type runTaskRequest struct {
	Task string `json:"task"`
}

type runTaskResponse struct {
	ID string `json:"id"`
}

type taskStep struct {
	Step     int    `json:"step"`
	NextGoal string `json:"next_goal"`
}

type taskResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output string          `json:"output"`
	Steps  json.RawMessage `json:"steps"`
	Cost   json.Number     `json:"cost"`
	Error  string          `json:"error"`
}

// CreateTask satisfies provider.Provider.
func (c *Client) CreateTask(ctx context.Context, jobURL, instructions string) (string, error) {
	var resp runTaskResponse
	if err := c.do(ctx, http.MethodPost, "/run-task", runTaskRequest{Task: instructions}, &resp); err != nil {
		return "", fmt.Errorf("could not create task: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("empty task id in response: %w", model.ErrProviderTask)
	}

	c.logger.Infof("Created remote task %s for %s", resp.ID, jobURL)
	return resp.ID, nil
}

// GetTaskStatus satisfies provider.Provider.
func (c *Client) GetTaskStatus(ctx context.Context, id string) (provider.Status, error) {
	var resp taskResponse
	if err := c.do(ctx, http.MethodGet, "/task/"+url.PathEscape(id), nil, &resp); err != nil {
		return provider.Status{}, fmt.Errorf("could not get task %s: %w", id, err)
	}

	st := provider.Status{
		State:  resp.Status,
		Steps:  -1,
		Output: resp.Output,
		Error:  resp.Error,
	}
	if resp.Cost != "" {
		if f, err := resp.Cost.Float64(); err == nil {
			st.Cost = f
		}
	}
	st.Steps, st.CurrentStep = parseSteps(resp.Steps)

	return st, nil
}

// parseSteps accepts either a step list or a step count.
func parseSteps(raw json.RawMessage) (int, string) {
	if len(raw) == 0 || string(raw) == "null" {
		return -1, ""
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, ""
	}

	var steps []taskStep
	if err := json.Unmarshal(raw, &steps); err != nil {
		return -1, ""
	}
	current := ""
	if len(steps) > 0 {
		current = steps[len(steps)-1].NextGoal
	}
	return len(steps), current
}

// CancelTask satisfies provider.Provider.
func (c *Client) CancelTask(ctx context.Context, id string) error {
	path := "/stop-task?task_id=" + url.QueryEscape(id)
	if err := c.do(ctx, http.MethodPut, path, nil, nil); err != nil {
		return fmt.Errorf("could not stop task %s: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: could not read response: %w", model.ErrTransport, err)
	}

	switch {
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s %s: %s", model.ErrTransport, method, path, statusText(resp.StatusCode, data))
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %s: %w", method, path, statusText(resp.StatusCode, data), model.ErrNotFound)
	case resp.StatusCode >= 300:
		return fmt.Errorf("%w: %s %s: %s", model.ErrProviderTask, method, path, statusText(resp.StatusCode, data))
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: could not decode response: %w", model.ErrProviderTask, err)
	}
	return nil
}

func statusText(code int, body []byte) string {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		return http.StatusText(code)
	}
	return fmt.Sprintf("%d %s", code, msg)
}
