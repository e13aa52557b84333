// Package api provides the account backend client.
//
// Endpoints:
//   - POST /auth/login   form-encoded username/password, returns a bearer token
//   - POST /auth/signup  JSON {email, username, password}, returns the new user
//   - POST /auth/verify  bearer token, returns the username it was issued to
//
// Errors carry the backend's "detail" message in APIError.
package api
