package api

import (
	"context"
	"net/http"
	"net/url"
)

// CreateLTIRegistrationRequest is the body for CreateLTIRegistration
type CreateLTIRegistrationRequest struct {
	InstitutionID string `json:"institution_id"`
	Issuer        string `json:"issuer"`
	ClientID      string `json:"client_id"`
	DeploymentID  string `json:"deployment_id,omitempty"`
}

func (c *Client) ListLTIRegistrations(ctx context.Context, institutionID string) (*LTIRegistrationsResponse, error) {
	query := url.Values{}
	if institutionID != "" {
		query.Set("institution_id", institutionID)
	}

	out := &LTIRegistrationsResponse{}
	err := c.do(ctx, http.MethodGet, "/lti/registrations", query, nil, out)
	return out, err
}

func (c *Client) CreateLTIRegistration(ctx context.Context, req CreateLTIRegistrationRequest) (*LTIRegistrationResponse, error) {
	out := &LTIRegistrationResponse{}
	err := c.do(ctx, http.MethodPost, "/lti/registrations", nil, req, out)
	return out, err
}

func (c *Client) DeleteLTIRegistration(ctx context.Context, id string) (*DeleteResponse, error) {
	out := &DeleteResponse{}
	err := c.do(ctx, http.MethodDelete, "/lti/registrations/"+id, nil, nil, out)
	return out, err
}
