// Package client provides a Go client for the bountyd API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client is a bountyd API client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// New creates a new bountyd client
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Bounty represents a bounty program. Amounts are decimal wei strings.
type Bounty struct {
	ID            string `json:"id"`
	Owner         string `json:"owner"`
	Triager       string `json:"triager,omitempty"`
	ContentRef    string `json:"contentRef"`
	RewardPool    string `json:"rewardPool"`
	InitialReward string `json:"initialReward"`
	StakeAmount   string `json:"stakeAmount"`
	Status        string `json:"status"`
	EndTime       string `json:"endTime"`
	CreatedAt     string `json:"createdAt"`
	ClosedAt      string `json:"closedAt,omitempty"`
}

// Submission represents one researcher's report on a bounty
type Submission struct {
	BountyID   string `json:"bountyId"`
	Researcher string `json:"researcher"`
	ContentRef string `json:"contentRef,omitempty"`
	Stake      string `json:"stake"`
	State      string `json:"state"`
	Visibility string `json:"visibility"`
	Severity   string `json:"severity"`
	CreatedAt  string `json:"createdAt"`
	ResolvedAt string `json:"resolvedAt,omitempty"`
}

// Event is one audit trail entry
type Event struct {
	Seq        int64          `json:"seq"`
	BountyID   string         `json:"bountyId"`
	Type       string         `json:"type"`
	Researcher string         `json:"researcher,omitempty"`
	Recipient  string         `json:"recipient,omitempty"`
	Amount     string         `json:"amount,omitempty"`
	ContentRef string         `json:"contentRef,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	CreatedAt  string         `json:"createdAt"`
}

// Payment is one settlement transfer
type Payment struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// CloseResult summarizes a settlement
type CloseResult struct {
	BountyID    string    `json:"bountyId"`
	Status      string    `json:"status"`
	ClosedAt    string    `json:"closedAt"`
	Winners     int       `json:"winners"`
	TotalPaid   string    `json:"totalPaid"`
	Dust        string    `json:"dust"`
	Payouts     []Payment `json:"payouts"`
	Refunds     []Payment `json:"refunds"`
	OwnerReturn string    `json:"ownerReturn,omitempty"`
}

// CreateBountyRequest is the request for creating a bounty
type CreateBountyRequest struct {
	Owner       string `json:"owner"`
	Triager     string `json:"triager,omitempty"`
	ContentRef  string `json:"contentRef"`
	Reward      string `json:"reward"`
	StakeAmount string `json:"stakeAmount"`
	Duration    int64  `json:"duration"`
}

// SubmitReportRequest is the request for submitting a report
type SubmitReportRequest struct {
	Researcher string `json:"researcher"`
	ContentRef string `json:"contentRef"`
	Deposit    string `json:"deposit"`
}

// ListBountiesResponse is the response for listing bounties
type ListBountiesResponse struct {
	Data       []Bounty   `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// ListSubmissionsResponse is the response for listing submissions
type ListSubmissionsResponse struct {
	Data []Submission `json:"data"`
}

// ListEventsResponse is the response for listing events
type ListEventsResponse struct {
	Data       []Event    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Pagination contains pagination info
type Pagination struct {
	Limit      int    `json:"limit"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// ListBountiesOptions filters a bounty listing
type ListBountiesOptions struct {
	Owner  string
	Status string
	Cursor string
	Limit  int
}

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CreateBounty opens a new bounty
func (c *Client) CreateBounty(ctx context.Context, req CreateBountyRequest) (*Bounty, error) {
	var resp Bounty
	if err := c.post(ctx, "/api/v1/bounties/", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListBounties lists bounties
func (c *Client) ListBounties(ctx context.Context, opts ListBountiesOptions) (*ListBountiesResponse, error) {
	q := url.Values{}
	if opts.Owner != "" {
		q.Set("owner", opts.Owner)
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Cursor != "" {
		q.Set("cursor", opts.Cursor)
	}
	if opts.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", opts.Limit))
	}
	path := "/api/v1/bounties/"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp ListBountiesResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetBounty gets a bounty by ID
func (c *Client) GetBounty(ctx context.Context, id string) (*Bounty, error) {
	var resp Bounty
	if err := c.get(ctx, "/api/v1/bounties/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitReport submits a report with its stake deposit
func (c *Client) SubmitReport(ctx context.Context, bountyID string, req SubmitReportRequest) (*Submission, error) {
	var resp Submission
	path := "/api/v1/bounties/" + url.PathEscape(bountyID) + "/submissions"
	if err := c.post(ctx, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSubmission gets one researcher's submission. viewer, when set,
// requests disclosure of a private report's content reference.
func (c *Client) GetSubmission(ctx context.Context, bountyID, researcher, viewer string) (*Submission, error) {
	path := fmt.Sprintf("/api/v1/bounties/%s/submissions/%s", url.PathEscape(bountyID), url.PathEscape(researcher))
	if viewer != "" {
		path += "?viewer=" + url.QueryEscape(viewer)
	}
	var resp Submission
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSubmissions lists all submissions on a bounty
func (c *Client) ListSubmissions(ctx context.Context, bountyID, viewer string) (*ListSubmissionsResponse, error) {
	path := "/api/v1/bounties/" + url.PathEscape(bountyID) + "/submissions"
	if viewer != "" {
		path += "?viewer=" + url.QueryEscape(viewer)
	}
	var resp ListSubmissionsResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AcceptSubmission marks a submission as a winner
func (c *Client) AcceptSubmission(ctx context.Context, bountyID, researcher, caller string) (*Submission, error) {
	return c.triage(ctx, bountyID, researcher, "accept", map[string]string{"caller": caller})
}

// RejectSubmission rejects a submission, slashing its stake
func (c *Client) RejectSubmission(ctx context.Context, bountyID, researcher, caller string) (*Submission, error) {
	return c.triage(ctx, bountyID, researcher, "reject", map[string]string{"caller": caller})
}

// SetSeverity grades a submission
func (c *Client) SetSeverity(ctx context.Context, bountyID, researcher, caller, severity string) (*Submission, error) {
	return c.triage(ctx, bountyID, researcher, "severity", map[string]string{
		"caller":   caller,
		"severity": severity,
	})
}

// SetVisibility changes a submission's disclosure state. contentRef is
// the plaintext pointer the report is published under.
func (c *Client) SetVisibility(ctx context.Context, bountyID, researcher, caller, visibility, contentRef string) (*Submission, error) {
	return c.triage(ctx, bountyID, researcher, "visibility", map[string]string{
		"caller":     caller,
		"visibility": visibility,
		"contentRef": contentRef,
	})
}

func (c *Client) triage(ctx context.Context, bountyID, researcher, action string, body map[string]string) (*Submission, error) {
	path := fmt.Sprintf("/api/v1/bounties/%s/submissions/%s/%s",
		url.PathEscape(bountyID), url.PathEscape(researcher), action)
	var resp Submission
	if err := c.post(ctx, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CloseBounty settles a bounty as its owner
func (c *Client) CloseBounty(ctx context.Context, bountyID, caller string) (*CloseResult, error) {
	var resp CloseResult
	path := "/api/v1/bounties/" + url.PathEscape(bountyID) + "/close"
	if err := c.post(ctx, path, map[string]string{"caller": caller}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CloseExpiredBounty settles a bounty past its end time
func (c *Client) CloseExpiredBounty(ctx context.Context, bountyID string) (*CloseResult, error) {
	var resp CloseResult
	path := "/api/v1/bounties/" + url.PathEscape(bountyID) + "/close-expired"
	if err := c.post(ctx, path, map[string]string{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListEvents lists a bounty's audit trail
func (c *Client) ListEvents(ctx context.Context, bountyID, cursor string, limit int) (*ListEventsResponse, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	path := "/api/v1/bounties/" + url.PathEscape(bountyID) + "/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp ListEventsResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.parseError(resp)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *Client) parseError(resp *http.Response) error {
	var errResp struct {
		Error APIError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	return &errResp.Error
}
