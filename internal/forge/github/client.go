// Package github talks to the GitHub REST API with a plain http.Client, the
// way the review pipeline consumes it: JSON for metadata, the v3.diff media
// type for change text, and issue comments for publishing.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/patchpilot/internal/forge"
	"github.com/patchpilot/pkg/models"
)

const (
	defaultBaseURL = "https://api.github.com"

	acceptJSON = "application/vnd.github.v3+json"
	acceptDiff = "application/vnd.github.v3.diff"
)

// Client implements forge.Client against the GitHub REST API.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	log     zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root, e.g. a GitHub
// Enterprise instance or a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		for len(u) > 0 && u[len(u)-1] == '/' {
			u = u[:len(u)-1]
		}
		c.baseURL = u
	}
}

// WithHTTPClient swaps the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

// NewClient builds a GitHub client authenticating with the given token. The
// token may be a personal access token or an App installation token.
func NewClient(token string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		token:   token,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PullRequest fetches the request title and description.
func (c *Client) PullRequest(ctx context.Context, ref forge.Ref) (models.PullRequest, error) {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", ref.Owner, ref.Repo, ref.Number)

	var payload struct {
		Number int    `json:"number"`
		Title  string `json:"title"`
		Body   string `json:"body"`
	}
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return models.PullRequest{}, fmt.Errorf("fetching pull request %s: %w", ref, err)
	}

	return models.PullRequest{
		Owner:       ref.Owner,
		Repo:        ref.Repo,
		Number:      ref.Number,
		Title:       payload.Title,
		Description: payload.Body,
	}, nil
}

// Diff returns the full unified diff of the request via the v3.diff media
// type.
func (c *Client) Diff(ctx context.Context, ref forge.Ref) (string, error) {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", ref.Owner, ref.Repo, ref.Number)
	body, err := c.getRaw(ctx, path, acceptDiff)
	if err != nil {
		return "", fmt.Errorf("fetching diff for %s: %w", ref, err)
	}
	return body, nil
}

// CompareDiff returns the unified diff between two commits, used for
// synchronize events where only the new commits should be reviewed.
func (c *Client) CompareDiff(ctx context.Context, ref forge.Ref, baseSHA, headSHA string) (string, error) {
	path := fmt.Sprintf("/repos/%s/%s/compare/%s...%s", ref.Owner, ref.Repo, baseSHA, headSHA)
	body, err := c.getRaw(ctx, path, acceptDiff)
	if err != nil {
		return "", fmt.Errorf("comparing %s...%s in %s/%s: %w", baseSHA, headSHA, ref.Owner, ref.Repo, err)
	}
	return body, nil
}

// PublishReport posts the report as one issue comment on the request.
func (c *Client) PublishReport(ctx context.Context, ref forge.Ref, body string) error {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", ref.Owner, ref.Repo, ref.Number)

	data, err := json.Marshal(map[string]string{"body": body})
	if err != nil {
		return fmt.Errorf("encoding comment: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, acceptJSON, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("posting comment on %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("posting comment on %s: %s", ref, resp.Status)
	}

	c.log.Info().Str("ref", ref.String()).Msg("report comment posted")
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path, accept string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", path, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}
	req.Header.Set("Accept", accept)
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, acceptJSON, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding GET %s: %w", path, err)
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, path, accept string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, accept, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading GET %s: %w", path, err)
	}
	return string(data), nil
}
