package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/exp/slog"
)

type Photo struct {
	ID            string    `json:"id"`
	Photo         string    `json:"photo"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Owner         string    `json:"owner"`
	OwnerUsername string    `json:"ownerUsername,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// PhotoUpdate holds the mutable fields of a photo. Nil fields are left as is.
type PhotoUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// TokenSource yields the current bearer token, or "" when signed out.
type TokenSource interface {
	Token() string
}

type PhotoClient struct {
	t      *transport
	tokens TokenSource
}

func NewPhotoClient(baseURL string, timeout time.Duration, tokens TokenSource, log *slog.Logger) *PhotoClient {
	return &PhotoClient{t: newTransport(baseURL, timeout, log), tokens: tokens}
}

// List fetches the whole feed, newest first. No token is needed.
func (c *PhotoClient) List(ctx context.Context) ([]Photo, error) {
	var photos []Photo
	if err := c.t.do(ctx, http.MethodGet, "/explore", "", nil, &photos); err != nil {
		return nil, err
	}

	return photos, nil
}

func (c *PhotoClient) Create(ctx context.Context, photo, name, description string) (Photo, error) {
	token, err := c.token()
	if err != nil {
		return Photo{}, err
	}

	if photo == "" || name == "" || description == "" {
		return Photo{}, validationErr("Please fill all fields")
	}

	var p Photo
	err = c.t.do(ctx, http.MethodPost, "/explore", token, map[string]string{
		"photo":       photo,
		"name":        name,
		"description": description,
	}, &p)

	return p, err
}

func (c *PhotoClient) Update(ctx context.Context, id string, fields PhotoUpdate) (Photo, error) {
	token, err := c.token()
	if err != nil {
		return Photo{}, err
	}

	if (fields.Name != nil && *fields.Name == "") || (fields.Description != nil && *fields.Description == "") {
		return Photo{}, validationErr("Please fill all fields")
	}

	var p Photo
	err = c.t.do(ctx, http.MethodPut, "/explore/"+url.PathEscape(id), token, fields, &p)

	return p, err
}

func (c *PhotoClient) Delete(ctx context.Context, id string) error {
	token, err := c.token()
	if err != nil {
		return err
	}

	return c.t.do(ctx, http.MethodDelete, "/explore/"+url.PathEscape(id), token, nil, nil)
}

func (c *PhotoClient) token() (string, error) {
	if c.tokens == nil {
		return "", errNoToken
	}

	token := c.tokens.Token()
	if token == "" {
		return "", errNoToken
	}

	return token, nil
}
