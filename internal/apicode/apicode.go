// Package apicode holds the machine-readable error codes the photogram API
// puts next to the human message in every error body. The server writes
// them and the client maps them back to error kinds.
package apicode

const (
	Validation   = "validation"
	Conflict     = "conflict"
	Unauthorized = "unauthorized"
	InvalidToken = "invalid_token"
	Forbidden    = "forbidden"
	NotFound     = "not_found"
	RateLimited  = "rate_limited"
	ServerError  = "server_error"
)
