package client

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/exp/slog"
)

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// AuthClient talks to the login and registration endpoints. Each call is a
// single attempt.
type AuthClient struct {
	t *transport
}

func NewAuthClient(baseURL string, timeout time.Duration, log *slog.Logger) *AuthClient {
	return &AuthClient{t: newTransport(baseURL, timeout, log)}
}

func (c *AuthClient) Login(ctx context.Context, username, password string) (AuthResult, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return AuthResult{}, validationErr("Please enter username and password")
	}

	var res AuthResult
	err := c.t.do(ctx, http.MethodPost, "/users/login", "", map[string]string{
		"username": username,
		"password": password,
	}, &res)

	return res, err
}

func (c *AuthClient) Register(ctx context.Context, username, email, password string) (AuthResult, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || password == "" {
		return AuthResult{}, validationErr("Please fill all fields")
	}

	var res AuthResult
	err := c.t.do(ctx, http.MethodPost, "/users/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &res)

	return res, err
}

// Me resolves token to the user it belongs to.
func (c *AuthClient) Me(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, errNoToken
	}

	var u User
	err := c.t.do(ctx, http.MethodGet, "/users/me", token, nil, &u)

	return u, err
}
