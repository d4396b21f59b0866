// Package apiclient is the HTTP client the CLI uses to talk to the daemon's
// job API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"airdate/internal/api"
	"airdate/internal/config"
)

// Client talks to a running airdate daemon over its HTTP API.
type Client struct {
	base  string
	token string
	owner string
	http  *http.Client
}

// ScheduleParams mirrors the POST /api/jobs payload.
type ScheduleParams struct {
	MediaRef    string   `json:"mediaRef"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Visibility  string   `json:"visibility,omitempty"`
	RunAt       string   `json:"runAt"`
}

// New builds a client for the daemon bound in the config. Owner may be empty
// to act as the shared default owner.
func New(cfg *config.Config, owner string) *Client {
	base := strings.TrimSpace(cfg.Paths.APIBind)
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		token: strings.TrimSpace(cfg.Paths.APIToken),
		owner: strings.TrimSpace(owner),
		http:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Schedule enqueues a new publish job.
func (c *Client) Schedule(ctx context.Context, params ScheduleParams) (api.JobView, error) {
	var resp api.JobResponse
	err := c.do(ctx, http.MethodPost, "/api/jobs", params, &resp)
	return resp.Job, err
}

// Jobs lists the caller's jobs.
func (c *Client) Jobs(ctx context.Context) ([]api.JobView, error) {
	var resp api.JobListResponse
	if err := c.do(ctx, http.MethodGet, "/api/jobs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// Job fetches one job by id.
func (c *Client) Job(ctx context.Context, id string) (api.JobView, error) {
	var resp api.JobResponse
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+id, nil, &resp)
	return resp.Job, err
}

// Cancel stops a pending job before it runs.
func (c *Client) Cancel(ctx context.Context, id string) (api.JobView, error) {
	var resp api.JobResponse
	err := c.do(ctx, http.MethodPost, "/api/jobs/"+id+"/cancel", nil, &resp)
	return resp.Job, err
}

// PublishNow runs a pending job immediately and waits for the outcome.
func (c *Client) PublishNow(ctx context.Context, id string) (api.JobView, error) {
	var resp api.JobResponse
	err := c.do(ctx, http.MethodPost, "/api/jobs/"+id+"/publish", nil, &resp)
	return resp.Job, err
}

// Delete removes a finished job.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/jobs/"+id, nil, nil)
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &status)
	return status, err
}

// ImportToken installs an upload credential on the daemon.
func (c *Client) ImportToken(ctx context.Context, tokenJSON []byte) error {
	return c.do(ctx, http.MethodPost, "/api/token", json.RawMessage(tokenJSON), nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.owner != "" {
		req.Header.Set("X-Airdate-Owner", c.owner)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("%s", payload.Error)
	}
	return fmt.Errorf("daemon returned %s", resp.Status)
}
