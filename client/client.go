// Package client is the Go client for the photogram API: a session state
// machine with persisted credentials plus typed auth and feed calls.
package client

import "golang.org/x/exp/slog"

type Client struct {
	Auth    *AuthClient
	Photos  *PhotoClient
	Session *Session
}

// New wires an AuthClient, a Session and a PhotoClient that takes its bearer
// token from that Session.
func New(cfg Config, store CredentialStore, log *slog.Logger, opts ...SessionOption) *Client {
	if log == nil {
		log = slog.Default()
	}

	auth := NewAuthClient(cfg.BaseURL(), cfg.Timeout, log)
	session := NewSession(auth, store, append([]SessionOption{WithSessionLogger(log)}, opts...)...)

	return &Client{
		Auth:    auth,
		Photos:  NewPhotoClient(cfg.BaseURL(), cfg.Timeout, session, log),
		Session: session,
	}
}
