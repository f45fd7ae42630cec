// Package github implements the small slice of the GitHub REST API the relay needs.
//
// The client handles:
// - POST /repos/{repo}/dispatches - Fire a repository_dispatch event
// - GET /repos/{repo}/actions/runs - Most recent workflow runs
// - GET /repos/{repo}/actions/workflows/{workflow}/runs - Runs of one workflow
// - GET /repos/{repo}/actions/runs/{id} - A single run
// - GET /repos/{repo} - Repository metadata (access check)
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultBaseURL is the public GitHub REST endpoint.
const DefaultBaseURL = "https://api.github.com"

// apiVersion pins the REST API version sent with every request.
const apiVersion = "2022-11-28"

// maxResponseSize limits response body reads to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Client is a GitHub REST client scoped to a single repository.
type Client struct {
	baseURL    string
	repo       string // owner/name
	token      string // Bearer token
	httpClient *http.Client
}

// New creates a client for repo ("owner/name") authenticated with token.
// An empty baseURL selects DefaultBaseURL.
func New(baseURL, repo, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		repo:    repo,
		token:   token,
		// No client timeout: callers bound requests with their context.
		httpClient: &http.Client{},
	}
}

// Repo returns the "owner/name" the client is bound to.
func (c *Client) Repo() string {
	return c.repo
}

// DispatchRequest is the request body for POST /repos/{repo}/dispatches.
type DispatchRequest struct {
	EventType     string `json:"event_type"`
	ClientPayload any    `json:"client_payload,omitempty"`
}

// Dispatch fires a repository_dispatch event. GitHub answers 204 with no body;
// there is no way to learn whether a workflow actually started.
func (c *Client) Dispatch(ctx context.Context, eventType string, payload any) error {
	req := &DispatchRequest{EventType: eventType, ClientPayload: payload}
	return c.post(ctx, c.repoPath("/dispatches"), req, nil)
}

// Run is a single workflow run. Conclusion is nil while the run is in progress.
type Run struct {
	ID           int64   `json:"id"`
	RunNumber    int     `json:"run_number"`
	Name         string  `json:"name"`
	HeadBranch   string  `json:"head_branch"`
	HeadSHA      string  `json:"head_sha,omitempty"`
	Event        string  `json:"event,omitempty"`
	Status       string  `json:"status"`
	Conclusion   *string `json:"conclusion"`
	HTMLURL      string  `json:"html_url"`
	DisplayTitle string  `json:"display_title,omitempty"`
	CreatedAt    string  `json:"created_at,omitempty"`
	UpdatedAt    string  `json:"updated_at,omitempty"`
}

// RunList is the response from the workflow run listing endpoints.
// The repository endpoint and the workflow endpoint both use workflow_runs;
// Runs is accepted as an alternate key.
type RunList struct {
	TotalCount   int   `json:"total_count"`
	WorkflowRuns []Run `json:"workflow_runs,omitempty"`
	Runs         []Run `json:"runs,omitempty"`
}

// Items returns workflow_runs if present, else runs, else nil.
func (l *RunList) Items() []Run {
	if l == nil {
		return nil
	}
	if l.WorkflowRuns != nil {
		return l.WorkflowRuns
	}
	return l.Runs
}

// ListRunsRequest is the request parameters for the run listing endpoints.
type ListRunsRequest struct {
	// Workflow is a workflow file name (ci.yml) or numeric id. Empty lists
	// runs across the whole repository.
	Workflow string
	PerPage  int
}

// ListRuns lists the most recent workflow runs, newest first.
func (c *Client) ListRuns(ctx context.Context, req *ListRunsRequest) (*RunList, error) {
	path := c.repoPath("/actions/runs")
	if req != nil && req.Workflow != "" {
		path = c.repoPath("/actions/workflows/" + url.PathEscape(req.Workflow) + "/runs")
	}

	query := url.Values{}
	if req != nil && req.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(req.PerPage))
	}

	var resp RunList
	if err := c.get(ctx, path, query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRun fetches a single workflow run by id.
func (c *Client) GetRun(ctx context.Context, runID int64) (*Run, error) {
	var resp Run
	if err := c.get(ctx, c.repoPath("/actions/runs/"+strconv.FormatInt(runID, 10)), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Repository is the subset of GET /repos/{repo} used for access checks.
type Repository struct {
	ID            int64  `json:"id"`
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
	HTMLURL       string `json:"html_url"`
	Permissions   *struct {
		Admin bool `json:"admin"`
		Push  bool `json:"push"`
		Pull  bool `json:"pull"`
	} `json:"permissions,omitempty"`
}

// GetRepository fetches repository metadata.
func (c *Client) GetRepository(ctx context.Context) (*Repository, error) {
	var resp Repository
	if err := c.get(ctx, c.repoPath(""), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Error represents a non-2xx response from the GitHub API.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("GitHub %d: %s", e.StatusCode, e.Body)
}

// repoPath joins suffix onto /repos/{owner}/{name}. The owner/name slash is kept literal.
func (c *Client) repoPath(suffix string) string {
	return "/repos/" + c.repo + suffix
}

// post sends a POST request and decodes the JSON response (if respBody is non-nil).
func (c *Client) post(ctx context.Context, path string, reqBody, respBody any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, respBody)
}

// get sends a GET request with query parameters and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, query url.Values, respBody any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}

	return c.do(req, respBody)
}

// do sets the common headers, executes req and decodes the response into respBody.
func (c *Client) do(req *http.Request, respBody any) error {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Read maxResponseSize+1 to detect oversized responses while still accepting
	// responses exactly at the limit.
	respBodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if int64(len(respBodyBytes)) > maxResponseSize {
		return fmt.Errorf("response exceeds maximum size of %d bytes", maxResponseSize)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBodyBytes)),
		}
	}

	if respBody == nil || len(respBodyBytes) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBodyBytes, respBody); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
