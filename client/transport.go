package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/exp/slog"
)

const maxErrorBody = 64 << 10

type transport struct {
	baseURL string
	hc      *http.Client
	log     *slog.Logger
}

func newTransport(baseURL string, timeout time.Duration, log *slog.Logger) *transport {
	if log == nil {
		log = slog.Default()
	}

	return &transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
		log:     log,
	}
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// do sends in as JSON and decodes a 2xx body into out. Any failure comes back
// as an *APIError.
func (t *transport) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &APIError{Kind: ErrValidation, Err: err}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return &APIError{Kind: ErrTransport, Err: err}
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.hc.Do(req)
	if err != nil {
		t.log.Debug("Request failed", "method", method, "path", path, "error", err)
		return &APIError{Kind: ErrTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = json.Unmarshal(raw, &eb)

		t.log.Debug("Request rejected",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"code", eb.Code,
		)

		return &APIError{
			Kind:    kindFor(resp.StatusCode, eb.Code),
			Status:  resp.StatusCode,
			Code:    eb.Code,
			Message: eb.Message,
		}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Kind: ErrServer, Status: resp.StatusCode, Err: err}
	}

	return nil
}
