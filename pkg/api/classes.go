package api

import (
	"context"
	"net/http"
	"net/url"
)

// CreateClassRequest is the body for CreateClass and UpdateClass
type CreateClassRequest struct {
	InstitutionID string `json:"institution_id"`
	Name          string `json:"name"`
	Term          string `json:"term,omitempty"`
	Archived      bool   `json:"archived,omitempty"`
}

func (c *Client) ListClasses(ctx context.Context, institutionID string) (*ClassesResponse, error) {
	query := url.Values{}
	if institutionID != "" {
		query.Set("institution_id", institutionID)
	}

	out := &ClassesResponse{}
	err := c.do(ctx, http.MethodGet, "/classes", query, nil, out)
	return out, err
}

func (c *Client) GetClass(ctx context.Context, id string) (*ClassResponse, error) {
	out := &ClassResponse{}
	err := c.do(ctx, http.MethodGet, "/classes/"+id, nil, nil, out)
	return out, err
}

func (c *Client) CreateClass(ctx context.Context, req CreateClassRequest) (*ClassResponse, error) {
	out := &ClassResponse{}
	err := c.do(ctx, http.MethodPost, "/classes", nil, req, out)
	return out, err
}

func (c *Client) UpdateClass(ctx context.Context, id string, req CreateClassRequest) (*ClassResponse, error) {
	out := &ClassResponse{}
	err := c.do(ctx, http.MethodPut, "/classes/"+id, nil, req, out)
	return out, err
}

func (c *Client) DeleteClass(ctx context.Context, id string) (*DeleteResponse, error) {
	out := &DeleteResponse{}
	err := c.do(ctx, http.MethodDelete, "/classes/"+id, nil, nil, out)
	return out, err
}
