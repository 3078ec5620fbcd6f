package api

import (
	"context"
	"net/http"
	"net/url"
)

// CreateUserRequest is the body for CreateUser and UpdateUser
type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

func (c *Client) ListUsers(ctx context.Context, classID string) (*UsersResponse, error) {
	query := url.Values{}
	if classID != "" {
		query.Set("class_id", classID)
	}

	out := &UsersResponse{}
	err := c.do(ctx, http.MethodGet, "/users", query, nil, out)
	return out, err
}

func (c *Client) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	out := &UserResponse{}
	err := c.do(ctx, http.MethodGet, "/users/"+id, nil, nil, out)
	return out, err
}

// GetCurrentUser fetches the account bound to the active session
func (c *Client) GetCurrentUser(ctx context.Context) (*UserResponse, error) {
	out := &UserResponse{}
	err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, out)
	return out, err
}

func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	out := &UserResponse{}
	err := c.do(ctx, http.MethodPost, "/users", nil, req, out)
	return out, err
}

func (c *Client) UpdateUser(ctx context.Context, id string, req CreateUserRequest) (*UserResponse, error) {
	out := &UserResponse{}
	err := c.do(ctx, http.MethodPut, "/users/"+id, nil, req, out)
	return out, err
}

func (c *Client) DeleteUser(ctx context.Context, id string) (*DeleteResponse, error) {
	out := &DeleteResponse{}
	err := c.do(ctx, http.MethodDelete, "/users/"+id, nil, nil, out)
	return out, err
}
