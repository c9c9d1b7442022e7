package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"golang.org/x/exp/slog"

	"photogram/internal/apicode"
)

const (
	CodeValidation   = apicode.Validation
	CodeConflict     = apicode.Conflict
	CodeUnauthorized = apicode.Unauthorized
	CodeInvalidToken = apicode.InvalidToken
	CodeForbidden    = apicode.Forbidden
	CodeNotFound     = apicode.NotFound
	CodeRateLimited  = apicode.RateLimited
	CodeServerError  = apicode.ServerError
)

const (
	photosPath = "/api/explore"
	usersPath  = "/api/users"

	maxBodySize = 1 << 20
)

type APIServer struct {
	store      Store
	tokens     *TokenIssuer
	photos     *PhotoService
	limiter    *RateLimiter
	bcryptCost int
	dummyHash  []byte
	listenAddr string
	httpCfg    HTTPConfig
}

func NewAPIServer(store Store, tokens *TokenIssuer, cfg *Config) *APIServer {
	var limiter *RateLimiter
	if cfg.Auth.RateLimit > 0 {
		limiter = NewRateLimiter(cfg.Auth.RateLimit, cfg.Auth.RateBurst)
	}

	// checked on unknown usernames so every login pays one bcrypt comparison
	dummyHash, err := hashPassword(newID(), cfg.Auth.BcryptCost)
	if err != nil {
		slog.Error("Failed to prepare the login dummy hash", "error", err)
	}

	return &APIServer{
		store:      store,
		tokens:     tokens,
		photos:     NewPhotoService(store),
		limiter:    limiter,
		bcryptCost: cfg.Auth.BcryptCost,
		dummyHash:  dummyHash,
		listenAddr: cfg.ListenAddr(),
		httpCfg:    cfg.HTTP,
	}
}

type APIFunc func(w http.ResponseWriter, r *http.Request) error

func makeHandler(f APIFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err == nil {
			return
		}

		var statusError *StatusError
		if errors.As(err, &statusError) {
			slog.Error("Writing API Status Error to response",
				"status_error", statusError,
				"method", r.Method,
				"path", r.URL.Path,
			)

			if err := writeJSONStatus(w, statusError.Status, statusError); err != nil {
				slog.Error("Failed to encode response", "error", err)
			}

			return
		}

		slog.Error("Writing an error to response", "error", err, "method", r.Method, "path", r.URL.Path)
		if err := writeJSONStatus(w, http.StatusInternalServerError, &StatusError{
			Code:    CodeServerError,
			Message: "Server Error",
		}); err != nil {
			slog.Error("Failed to encode response", "error", err)
		}
	}
}

type StatusError struct {
	Err     error  `json:"-"`
	Status  int    `json:"-"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (a *StatusError) Error() string {
	if a.Err != nil {
		return a.Err.Error()
	}

	if a.Message != "" {
		return a.Message
	}

	return http.StatusText(a.Status)
}

func (a *StatusError) Unwrap() error {
	return a.Err
}

func badRequest(err error) *StatusError {
	return &StatusError{Err: err, Status: http.StatusBadRequest, Code: CodeValidation, Message: err.Error()}
}

func methodNotAllowed() *StatusError {
	return &StatusError{Status: http.StatusMethodNotAllowed, Message: http.StatusText(http.StatusMethodNotAllowed)}
}

func notFound(msg string) *StatusError {
	return &StatusError{Status: http.StatusNotFound, Code: CodeNotFound, Message: msg}
}

// validationError turns ozzo validation failures into a 400 and passes
// anything else through untouched.
func validationError(err error) error {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return badRequest(err)
	}

	return err
}

func (s *APIServer) Routes() http.Handler {
	r := http.NewServeMux()

	r.HandleFunc("/health", makeHandler(s.HandleHealth))
	r.HandleFunc(usersPath+"/register", makeHandler(s.rateLimit(s.HandleRegister)))
	r.HandleFunc(usersPath+"/login", makeHandler(s.rateLimit(s.HandleLogin)))
	r.HandleFunc(usersPath+"/me", makeHandler(s.authMiddleware(s.HandleMe)))
	r.HandleFunc(photosPath, makeHandler(s.HandlePhotos))
	r.HandleFunc(photosPath+"/", makeHandler(s.HandlePhoto))

	return r
}

func (s *APIServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.Routes(),
		ReadTimeout:       s.httpCfg.ReadTimeout,
		ReadHeaderTimeout: s.httpCfg.ReadHeaderTimeout,
		WriteTimeout:      s.httpCfg.WriteTimeout,
		IdleTimeout:       s.httpCfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting the server", "listen_addr", s.listenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down the server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func (s *APIServer) HandleHealth(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		return methodNotAllowed()
	}

	if err := s.store.Ping(r.Context()); err != nil {
		return &StatusError{Err: err, Status: http.StatusServiceUnavailable, Code: CodeServerError, Message: "storage unavailable"}
	}

	return writeJSON(w, map[string]string{"status": "ok"})
}

type APIAuthFunc func(who Identity, w http.ResponseWriter, r *http.Request) error

// authMiddleware resolves the bearer token to a stored user before calling f.
// A missing or malformed header is a 401, a token that fails verification or
// names an unknown user is a 403.
func (s *APIServer) authMiddleware(f APIAuthFunc) APIFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		header := strings.Fields(r.Header.Get("Authorization"))
		if len(header) != 2 || !strings.EqualFold(header[0], "Bearer") {
			return &StatusError{
				Status:  http.StatusUnauthorized,
				Code:    CodeUnauthorized,
				Message: "Not authorized, no token",
			}
		}

		claims, err := s.tokens.VerifyJWTToken(header[1])
		if err != nil {
			return &StatusError{
				Err:     err,
				Status:  http.StatusForbidden,
				Code:    CodeInvalidToken,
				Message: "Not authorized, token failed",
			}
		}

		user, err := s.store.GetUserByID(r.Context(), claims.Subject)
		if errors.Is(err, ErrUserNotFound) {
			return &StatusError{
				Err:     err,
				Status:  http.StatusForbidden,
				Code:    CodeInvalidToken,
				Message: "Not authorized, token failed",
			}
		}
		if err != nil {
			return err
		}

		return f(Identity{UserID: user.ID, Username: user.Username, Email: user.Email}, w, r)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &StatusError{Err: err, Status: http.StatusBadRequest, Code: CodeValidation, Message: "Invalid request body"}
	}

	return nil
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")

	return json.NewEncoder(w).Encode(v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(v)
}
