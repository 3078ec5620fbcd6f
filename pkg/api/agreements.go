package api

import (
	"context"
	"net/http"
)

func (c *Client) ListAgreements(ctx context.Context) (*AgreementsResponse, error) {
	out := &AgreementsResponse{}
	err := c.do(ctx, http.MethodGet, "/agreements", nil, nil, out)
	return out, err
}

func (c *Client) GetAgreement(ctx context.Context, id string) (*AgreementResponse, error) {
	out := &AgreementResponse{}
	err := c.do(ctx, http.MethodGet, "/agreements/"+id, nil, nil, out)
	return out, err
}

// AcceptAgreement records the current user's acceptance
func (c *Client) AcceptAgreement(ctx context.Context, id string) (*AgreementResponse, error) {
	out := &AgreementResponse{}
	err := c.do(ctx, http.MethodPost, "/agreements/"+id+"/accept", nil, nil, out)
	return out, err
}
