package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/exp/slog"
)

var ErrInvalidCredentials = errors.New("api: invalid credentials")

type HandleRegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r HandleRegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		// bcrypt ignores everything past 72 bytes
		validation.Field(&r.Password, validation.Required, validation.Length(6, 72)),
	)
}

type HandleLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r HandleLoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

func (s *APIServer) HandleRegister(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return methodNotAllowed()
	}

	var req HandleRegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	hash, err := hashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return err
	}

	user, err := s.store.CreateUser(r.Context(), User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	})
	if errors.Is(err, ErrUserExists) {
		return &StatusError{Err: err, Status: http.StatusBadRequest, Code: CodeConflict, Message: "User already exists"}
	}
	if err != nil {
		return err
	}

	token, err := s.tokens.NewJWTAccessToken(user)
	if err != nil {
		return err
	}

	slog.Info("Registered a user", "user_id", user.ID, "username", user.Username)

	return writeJSONStatus(w, http.StatusCreated, AuthResponse{Token: token.Access, User: user.Public()})
}

func (s *APIServer) HandleLogin(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return methodNotAllowed()
	}

	var req HandleLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	req.Username = strings.TrimSpace(req.Username)

	if err := req.Validate(); err != nil {
		return validationError(err)
	}

	invalid := &StatusError{Err: ErrInvalidCredentials, Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "Invalid credentials"}

	user, err := s.store.GetUserByUsername(r.Context(), req.Username)
	if errors.Is(err, ErrUserNotFound) {
		verifyPassword(req.Password, string(s.dummyHash))
		return invalid
	}
	if err != nil {
		return err
	}

	if !verifyPassword(req.Password, user.PasswordHash) {
		return invalid
	}

	token, err := s.tokens.NewJWTAccessToken(user)
	if err != nil {
		return err
	}

	return writeJSON(w, AuthResponse{Token: token.Access, User: user.Public()})
}

func (s *APIServer) HandleMe(who Identity, w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		return methodNotAllowed()
	}

	return writeJSON(w, PublicUser{ID: who.UserID, Username: who.Username, Email: who.Email})
}

func hashPassword(pwd string, cost int) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pwd), cost)
}

func verifyPassword(pwd, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pwd))
	return err == nil
}
