package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/roach88/rubric/internal/document"
	"github.com/roach88/rubric/internal/rubric"
)

// Client talks to a rubric Server for one organization.
// It implements document.Persistence.
type Client struct {
	baseURL string
	orgID   string
	http    *http.Client
}

var _ document.Persistence = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL, orgID string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		orgID:   orgID,
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetRubric implements document.Persistence.
func (c *Client) GetRubric(ctx context.Context, id string) (*rubric.Rubric, error) {
	var r rubric.Rubric
	q := url.Values{"rubricID": {id}}
	if err := c.do(ctx, http.MethodGet, "/rubric?"+q.Encode(), nil, &r); err != nil {
		return nil, fmt.Errorf("get rubric %s: %w", id, err)
	}
	return &r, nil
}

// GetOrgDefault implements document.Persistence.
func (c *Client) GetOrgDefault(ctx context.Context) (rubric.OrgDefaultStatus, error) {
	var status rubric.OrgDefaultStatus
	if err := c.do(ctx, http.MethodGet, "/rubric/orgdefault", nil, &status); err != nil {
		return rubric.OrgDefaultStatus{}, fmt.Errorf("get org default: %w", err)
	}
	return status, nil
}

// PutRubric implements document.Persistence.
func (c *Client) PutRubric(ctx context.Context, req rubric.PutRequest) (rubric.PutResponse, error) {
	var resp rubric.PutResponse
	if err := c.do(ctx, http.MethodPut, "/rubric", req, &resp); err != nil {
		return rubric.PutResponse{}, fmt.Errorf("put rubric: %w", err)
	}
	return resp, nil
}

// ListRubrics fetches the organization's rubric summaries.
func (c *Client) ListRubrics(ctx context.Context) ([]rubric.Summary, error) {
	var list []rubric.Summary
	if err := c.do(ctx, http.MethodGet, "/rubrics", nil, &list); err != nil {
		return nil, fmt.Errorf("list rubrics: %w", err)
	}
	return list, nil
}

// Snapshot records an immutable copy of rubricID for reviewID.
func (c *Client) Snapshot(ctx context.Context, rubricID, reviewID string) (rubric.Snapshot, error) {
	var snap rubric.Snapshot
	body := SnapshotRequest{RubricID: rubricID, ReviewID: reviewID}
	if err := c.do(ctx, http.MethodPost, "/rubric/snapshot", body, &snap); err != nil {
		return rubric.Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	return snap, nil
}

// StatusError is a non-2xx reply that maps to no rubric sentinel.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set(HeaderOrgID, c.orgID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return decodeError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", rubric.ErrMalformed, err)
	}
	return nil
}

// decodeError turns an error envelope back into the error the server
// classified, so callers can keep using errors.Is.
func decodeError(status int, data []byte) error {
	var env struct {
		Error struct {
			Message string                    `json:"message"`
			Code    string                    `json:"code"`
			Details document.ValidationErrors `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return &StatusError{Status: status, Message: strings.TrimSpace(string(data))}
	}

	e := env.Error
	switch e.Code {
	case CodeInvalid:
		if len(e.Details) > 0 {
			return e.Details
		}
	case CodeInvalidID:
		return fmt.Errorf("%w: %s", rubric.ErrInvalidID, e.Message)
	case CodeNotFound:
		return fmt.Errorf("%w: %s", rubric.ErrNotFound, e.Message)
	case CodeConflict:
		return fmt.Errorf("%w: %s", rubric.ErrConflict, e.Message)
	case CodeMalformed:
		return fmt.Errorf("%w: %s", rubric.ErrMalformed, e.Message)
	}
	return &StatusError{Status: status, Code: e.Code, Message: e.Message}
}
