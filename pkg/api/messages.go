package api

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// PostMessageRequest is the body for PostMessage
type PostMessageRequest struct {
	UserID        string `json:"user_id"`
	Text          string `json:"text"`
	AttachmentIDs []string `json:"attachment_ids,omitempty"`
}

// ListMessages fetches one page of a thread's history, newest page first.
// beforeID pages backwards from a known message id; empty fetches the latest
// page.
func (c *Client) ListMessages(ctx context.Context, threadID, beforeID string, limit int) (*MessagesResponse, error) {
	query := url.Values{}
	if beforeID != "" {
		query.Set("before_id", beforeID)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	out := &MessagesResponse{}
	err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/messages", query, nil, out)
	return out, err
}

// PostMessage appends a user message. When the backend starts a generation
// cycle for it, the response carries the new run.
func (c *Client) PostMessage(ctx context.Context, threadID string, req PostMessageRequest) (*PostMessageResponse, error) {
	out := &PostMessageResponse{}
	err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/messages", nil, req, out)
	return out, err
}

// GetRun fetches the current status of a run
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*RunResponse, error) {
	out := &RunResponse{}
	err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+runID, nil, nil, out)
	return out, err
}

// StreamRunEvents opens the run's NDJSON event stream and returns the raw
// body for pkg/stream to decode
func (c *Client) StreamRunEvents(ctx context.Context, threadID, runID string) (io.ReadCloser, error) {
	return c.stream(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+runID+"/events", nil)
}
