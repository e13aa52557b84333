package api

import (
	"strconv"

	"github.com/rickgao/elevenfingers/internal/model"
)

// Token from POST /auth/login
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// SignupRequest for POST /auth/signup
type SignupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// signupResponse from POST /auth/signup
type signupResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (r signupResponse) toModel() model.User {
	return model.User{
		ID:       strconv.FormatInt(r.ID, 10),
		Username: r.Username,
		Email:    r.Email,
	}
}

// verifyRequest is the body of POST /auth/verify. The backend reads the
// credentials from the JSON body, not the Authorization header.
type verifyRequest struct {
	Scheme      string `json:"scheme"`
	Credentials string `json:"credentials"`
}

// Verification from POST /auth/verify
type Verification struct {
	Valid    bool   `json:"verify"`
	Username string `json:"username"`
}

// errorResponse is the backend's error body.
type errorResponse struct {
	Detail string `json:"detail"`
}
