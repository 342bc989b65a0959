package apiclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/dharsanguruparan/CircularNest/internal/model"
)

// SignupRequest is the body of POST /api/auth/signup.
type SignupRequest struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
	model.Institution
}

// LoginResult carries the issued token and the profile.
type LoginResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type userEnvelope struct {
	User *model.User `json:"user"`
}

// Signup registers an account. It does not log the account in.
func (c *Client) Signup(ctx context.Context, req SignupRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/signup", nil, req, nil)
}

// Login exchanges credentials for a token. The token is not persisted here;
// the session decides when to store it.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var out LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, errors.New("login response carried no token")
	}
	return &out, nil
}

// Me validates the stored token and returns the current profile.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out userEnvelope
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, &APIError{StatusCode: http.StatusOK, Message: "profile missing from response"}
	}
	return out.User, nil
}

// UpdateProfile applies a partial update of the institution metadata.
func (c *Client) UpdateProfile(ctx context.Context, update model.Institution) (*model.User, error) {
	var out userEnvelope
	if err := c.doJSON(ctx, http.MethodPut, "/api/auth/profile", nil, update, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}
