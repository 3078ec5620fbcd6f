package api

import (
	"context"
	"net/http"
	"net/url"
)

// CreateAssistantRequest is the body for CreateAssistant and UpdateAssistant
type CreateAssistantRequest struct {
	ClassID      string `json:"class_id"`
	Name         string `json:"name"`
	Model        string `json:"model,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Published    bool   `json:"published,omitempty"`
}

func (c *Client) ListAssistants(ctx context.Context, classID string) (*AssistantsResponse, error) {
	query := url.Values{}
	if classID != "" {
		query.Set("class_id", classID)
	}

	out := &AssistantsResponse{}
	err := c.do(ctx, http.MethodGet, "/assistants", query, nil, out)
	return out, err
}

func (c *Client) GetAssistant(ctx context.Context, id string) (*AssistantResponse, error) {
	out := &AssistantResponse{}
	err := c.do(ctx, http.MethodGet, "/assistants/"+id, nil, nil, out)
	return out, err
}

func (c *Client) CreateAssistant(ctx context.Context, req CreateAssistantRequest) (*AssistantResponse, error) {
	out := &AssistantResponse{}
	err := c.do(ctx, http.MethodPost, "/assistants", nil, req, out)
	return out, err
}

func (c *Client) UpdateAssistant(ctx context.Context, id string, req CreateAssistantRequest) (*AssistantResponse, error) {
	out := &AssistantResponse{}
	err := c.do(ctx, http.MethodPut, "/assistants/"+id, nil, req, out)
	return out, err
}

func (c *Client) DeleteAssistant(ctx context.Context, id string) (*DeleteResponse, error) {
	out := &DeleteResponse{}
	err := c.do(ctx, http.MethodDelete, "/assistants/"+id, nil, nil, out)
	return out, err
}
