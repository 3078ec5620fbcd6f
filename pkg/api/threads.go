package api

import (
	"context"
	"net/http"
	"net/url"
)

// CreateThreadRequest is the body for CreateThread
type CreateThreadRequest struct {
	ClassID     string `json:"class_id"`
	AssistantID string `json:"assistant_id"`
}

type setPublicRequest struct {
	Public bool `json:"public"`
}

func (c *Client) ListThreads(ctx context.Context, classID string) (*ThreadsResponse, error) {
	query := url.Values{}
	if classID != "" {
		query.Set("class_id", classID)
	}

	out := &ThreadsResponse{}
	err := c.do(ctx, http.MethodGet, "/threads", query, nil, out)
	return out, err
}

// GetThread fetches a thread with its participant list and, when one is
// outstanding, the current run
func (c *Client) GetThread(ctx context.Context, id string) (*ThreadResponse, error) {
	out := &ThreadResponse{}
	err := c.do(ctx, http.MethodGet, "/threads/"+id, nil, nil, out)
	return out, err
}

func (c *Client) CreateThread(ctx context.Context, req CreateThreadRequest) (*ThreadResponse, error) {
	out := &ThreadResponse{}
	err := c.do(ctx, http.MethodPost, "/threads", nil, req, out)
	return out, err
}

// SetThreadPublic toggles the thread's share visibility. Permission is
// enforced server-side; a 403 comes back in the envelope like any error.
func (c *Client) SetThreadPublic(ctx context.Context, id string, public bool) (*ThreadResponse, error) {
	out := &ThreadResponse{}
	err := c.do(ctx, http.MethodPut, "/threads/"+id+"/visibility", nil, setPublicRequest{Public: public}, out)
	return out, err
}

func (c *Client) DeleteThread(ctx context.Context, id string) (*DeleteResponse, error) {
	out := &DeleteResponse{}
	err := c.do(ctx, http.MethodDelete, "/threads/"+id, nil, nil, out)
	return out, err
}
