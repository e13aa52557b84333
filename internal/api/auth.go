package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/rickgao/elevenfingers/internal/model"
)

// ErrInvalidToken is returned by Verify when the backend rejects a token.
var ErrInvalidToken = errors.New("invalid token")

// Login exchanges a username (or email) and password for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var tok Token
	err := c.post(ctx, request{
		path:        "/auth/login",
		body:        []byte(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, &tok)
	if err != nil {
		return Token{}, fmt.Errorf("login: %w", err)
	}
	if tok.AccessToken == "" {
		return Token{}, fmt.Errorf("login: empty access token")
	}

	c.logger.Debug("logged in", "username", username, "token_type", tok.TokenType)
	return tok, nil
}

// Signup creates an account. It is never retried: a 5xx may arrive after
// the account was committed.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (model.User, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return model.User{}, fmt.Errorf("marshal signup: %w", err)
	}

	var resp signupResponse
	err = c.post(ctx, request{
		path:        "/auth/signup",
		body:        body,
		contentType: "application/json",
		noRetry:     true,
	}, &resp)
	if err != nil {
		return model.User{}, fmt.Errorf("signup: %w", err)
	}

	return resp.toModel(), nil
}

// Verify checks a bearer token. A 401 from the backend is reported as
// ErrInvalidToken.
func (c *Client) Verify(ctx context.Context, token string) (Verification, error) {
	body, err := json.Marshal(verifyRequest{Scheme: "bearer", Credentials: token})
	if err != nil {
		return Verification{}, fmt.Errorf("marshal verify: %w", err)
	}

	var v Verification
	err = c.post(ctx, request{
		path:        "/auth/verify",
		body:        body,
		contentType: "application/json",
		token:       token,
	}, &v)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 401 {
			return Verification{}, fmt.Errorf("verify: %w: %s", ErrInvalidToken, apiErr.Message)
		}
		return Verification{}, fmt.Errorf("verify: %w", err)
	}

	return v, nil
}
