package api

import (
	"context"
	"net/http"
)

// CreateInstitutionRequest is the body for CreateInstitution
type CreateInstitutionRequest struct {
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
}

func (c *Client) ListInstitutions(ctx context.Context) (*InstitutionsResponse, error) {
	out := &InstitutionsResponse{}
	err := c.do(ctx, http.MethodGet, "/institutions", nil, nil, out)
	return out, err
}

func (c *Client) GetInstitution(ctx context.Context, id string) (*InstitutionResponse, error) {
	out := &InstitutionResponse{}
	err := c.do(ctx, http.MethodGet, "/institutions/"+id, nil, nil, out)
	return out, err
}

func (c *Client) CreateInstitution(ctx context.Context, req CreateInstitutionRequest) (*InstitutionResponse, error) {
	out := &InstitutionResponse{}
	err := c.do(ctx, http.MethodPost, "/institutions", nil, req, out)
	return out, err
}

func (c *Client) UpdateInstitution(ctx context.Context, id string, req CreateInstitutionRequest) (*InstitutionResponse, error) {
	out := &InstitutionResponse{}
	err := c.do(ctx, http.MethodPut, "/institutions/"+id, nil, req, out)
	return out, err
}

func (c *Client) DeleteInstitution(ctx context.Context, id string) (*DeleteResponse, error) {
	out := &DeleteResponse{}
	err := c.do(ctx, http.MethodDelete, "/institutions/"+id, nil, nil, out)
	return out, err
}
